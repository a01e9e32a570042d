// Package output renders command results as text, JSON or YAML, optionally
// narrowed by a mapx query.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/mapx"
	"github.com/axent-pl/drmkit/provision"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", common.ErrInvalidInput, s)
}

type Renderer struct {
	Format Format
	// Query, when set, selects part of the value (e.g. ".playback.url").
	Query string
}

func (r Renderer) Render(w io.Writer, v any) error {
	if r.Query != "" {
		root, err := mapx.Normalize(v)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrInternal, err)
		}
		matches, err := mapx.Get(root, r.Query)
		if err != nil {
			return fmt.Errorf("%w: invalid query: %v", common.ErrInvalidInput, err)
		}
		if len(matches) == 1 {
			return r.renderValue(w, matches[0])
		}
		return r.renderValue(w, matches)
	}
	if res, ok := v.(*provision.Result); ok && r.Format == FormatText {
		return writeResultText(w, res)
	}
	return r.renderValue(w, v)
}

func (r Renderer) renderValue(w io.Writer, v any) error {
	switch r.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, v)
	}
}

// writeText prints scalars bare, one list element per line, and falls back
// to YAML for anything structured.
func writeText(w io.Writer, v any) error {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, t)
		return err
	case []byte:
		_, err := fmt.Fprintln(w, string(t))
		return err
	case json.RawMessage:
		_, err := fmt.Fprintln(w, string(t))
		return err
	case bool, float64, int, int64:
		_, err := fmt.Fprintln(w, t)
		return err
	case []any:
		for _, item := range t {
			if err := writeText(w, item); err != nil {
				return err
			}
		}
		return nil
	}
	return Renderer{Format: FormatYAML}.renderValue(w, v)
}

func writeResultText(w io.Writer, res *provision.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Policy: %s\n", res.PolicyName)
	fmt.Fprintf(&b, "Locator: %s\n", res.LocatorName)
	fmt.Fprintf(&b, "KeyIdentifier = %s\n", res.KeyIdentifier)
	b.WriteString("\n")
	if res.Playback.Resolved {
		b.WriteString("Copy and paste the following URL in your browser to play back the file in the Azure Media Player.\n")
		b.WriteString("You can use Edge/IE11 for PlayReady and Chrome/Firefox for Widevine.\n\n")
		fmt.Fprintf(&b, "%s\n\n", res.Playback.PlayerURL)
	} else {
		fmt.Fprintf(&b, "No DASH streaming path available for locator %s.\n\n", res.LocatorName)
	}
	if res.PrimaryToken != "" {
		fmt.Fprintf(&b, "Bearer %s\n", res.PrimaryToken)
	}
	if res.SecondaryToken != "" {
		fmt.Fprintf(&b, "Bearer %s\n", res.SecondaryToken)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
