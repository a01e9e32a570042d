package common

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/axent-pl/drmkit/common/logx"
	"golang.org/x/oauth2"
)

// Authority is the identity provider a client authenticates against and
// the resource it asks a token for.
type Authority struct {
	// AadEndpoint is the identity provider base, e.g. https://login.microsoftonline.com
	AadEndpoint string
	// Audience is the resource identifier, e.g. https://management.core.windows.net/
	Audience string
}

func (a Authority) TokenURL(tenant string) string {
	return strings.TrimRight(a.AadEndpoint, "/") + "/" + url.PathEscape(tenant) + "/oauth2/v2.0/token"
}

// DefaultScope appends "/.default" to the audience as given, so an
// audience with a trailing slash yields "//.default".
func DefaultScope(audience string) string { return audience + "/.default" }

func (a Authority) Validate() error {
	for name, raw := range map[string]string{"AadEndpoint": a.AadEndpoint, "ArmAadAudience": a.Audience} {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL", ErrInvalidInput, name)
		}
	}
	return nil
}

// Acquire fetches one token. Failures are reported as ErrAuthentication and
// are not retried.
func Acquire(ctx context.Context, ts oauth2.TokenSource) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tok, err := ts.Token()
	if err != nil {
		logx.L().Debug("could not acquire access token", "context", ctx, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if !tok.Valid() {
		return nil, fmt.Errorf("%w: identity provider returned an unusable token", ErrAuthentication)
	}
	return tok, nil
}
