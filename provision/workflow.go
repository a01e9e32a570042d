// Package provision runs the ordered steps that turn an encoded asset into
// a DRM-protected, token-gated stream.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/media"
	"github.com/axent-pl/drmkit/policy"
)

// Authenticator obtains the management API credential. Failures end the run.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

type AuthenticatorFunc func(ctx context.Context) error

func (f AuthenticatorFunc) Authenticate(ctx context.Context) error { return f(ctx) }

// TokenMinter issues the primary token for a content key.
type TokenMinter interface {
	PrimaryToken(ctx context.Context, keyIdentifier string) (string, error)
}

// SecondaryMinter is implemented by minters that also issue a token under
// the alternate key.
type SecondaryMinter interface {
	SecondaryToken(ctx context.Context) (string, error)
}

type Settings struct {
	AssetName             string
	StreamingPolicyName   string
	StreamingEndpointName string
	PolicyNamePrefix      string
	EndpointStartTimeout  time.Duration
	EndpointPollInterval  time.Duration
	// RequirePlaybackURL fails the run with ErrPathNotFound when the
	// locator has no DASH path.
	RequirePlaybackURL bool
}

type Workflow struct {
	Client        media.Client
	Authenticator Authenticator
	Policy        *policy.Builder
	Tokens        TokenMinter
	Settings      Settings

	// NewNonce is replaceable for tests.
	NewNonce func() (string, error)
}

type Playback struct {
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	PlayerURL string `json:"playerUrl,omitempty" yaml:"playerUrl,omitempty"`
	Resolved  bool   `json:"resolved" yaml:"resolved"`
}

type Result struct {
	State          State    `json:"state" yaml:"state"`
	Nonce          string   `json:"nonce" yaml:"nonce"`
	PolicyName     string   `json:"policyName,omitempty" yaml:"policyName,omitempty"`
	LocatorName    string   `json:"locatorName,omitempty" yaml:"locatorName,omitempty"`
	KeyIdentifier  string   `json:"keyIdentifier,omitempty" yaml:"keyIdentifier,omitempty"`
	EndpointHost   string   `json:"endpointHost,omitempty" yaml:"endpointHost,omitempty"`
	Playback       Playback `json:"playback" yaml:"playback"`
	PrimaryToken   string   `json:"primaryToken,omitempty" yaml:"primaryToken,omitempty"`
	SecondaryToken string   `json:"secondaryToken,omitempty" yaml:"secondaryToken,omitempty"`
}

func (w *Workflow) validate() error {
	if w.Client == nil || w.Policy == nil || w.Tokens == nil {
		return fmt.Errorf("%w: workflow needs a media client, policy builder and token minter", common.ErrInvalidInput)
	}
	s := w.Settings
	if s.AssetName == "" || s.StreamingPolicyName == "" || s.StreamingEndpointName == "" || s.PolicyNamePrefix == "" {
		return fmt.Errorf("%w: asset, streaming policy, endpoint and policy prefix are required", common.ErrConfigMissing)
	}
	if s.EndpointStartTimeout <= 0 || s.EndpointPollInterval <= 0 {
		return fmt.Errorf("%w: endpoint start timeout and poll interval must be positive", common.ErrInvalidInput)
	}
	return nil
}

func (w *Workflow) advance(ctx context.Context, res *Result, to State) {
	logx.L().Info("provisioning step done", "from", res.State.String(), "to", to.String())
	logx.L().Debug("state transition", "context", ctx, "state", to.String())
	res.State = to
}

// Run executes every step in order. The returned Result is never nil and
// records the last state reached, also when an error ends the run.
func (w *Workflow) Run(ctx context.Context) (*Result, error) {
	res := &Result{State: StateConfigured}
	if err := w.validate(); err != nil {
		return res, err
	}

	newNonce := w.NewNonce
	if newNonce == nil {
		newNonce = NewNonce
	}
	nonce, err := newNonce()
	if err != nil {
		return res, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	res.Nonce = nonce

	// Authenticated
	if w.Authenticator != nil {
		if err := w.Authenticator.Authenticate(ctx); err != nil {
			return res, err
		}
	} else {
		logx.L().Debug("no authenticator configured, skipping", "context", ctx)
	}
	w.advance(ctx, res, StateAuthenticated)

	// PolicyRegistered
	options, err := w.Policy.Options(ctx)
	if err != nil {
		return res, err
	}
	policyName := PolicyName(w.Settings.PolicyNamePrefix, nonce)
	if _, err := w.Client.CreateOrUpdateContentKeyPolicy(ctx, policyName, options); err != nil {
		return res, err
	}
	res.PolicyName = policyName
	w.advance(ctx, res, StatePolicyRegistered)

	// LocatorCreated
	locatorName := LocatorName(w.Settings.AssetName, nonce)
	locator, err := w.Client.CreateStreamingLocator(ctx, locatorName, media.StreamingLocator{
		AssetName:                   w.Settings.AssetName,
		StreamingPolicyName:         w.Settings.StreamingPolicyName,
		DefaultContentKeyPolicyName: policyName,
	})
	if err != nil {
		return res, err
	}
	res.LocatorName = locatorName
	keyID, err := locator.KeyIdentifier()
	if err != nil {
		return res, err
	}
	res.KeyIdentifier = keyID
	w.advance(ctx, res, StateLocatorCreated)

	// EndpointEnsuredRunning
	endpoint, err := EnsureEndpointRunning(ctx, w.Client, w.Settings.StreamingEndpointName, w.Settings.EndpointStartTimeout, w.Settings.EndpointPollInterval)
	if err != nil {
		return res, err
	}
	res.EndpointHost = endpoint.HostName
	w.advance(ctx, res, StateEndpointEnsuredRunning)

	// PathsResolved
	paths, err := w.Client.ListPaths(ctx, locatorName)
	if err != nil {
		return res, err
	}
	if dashURL, ok := SelectDASHPath(endpoint.HostName, paths); ok {
		res.Playback = Playback{URL: dashURL, PlayerURL: PlayerURL(dashURL), Resolved: true}
	} else if w.Settings.RequirePlaybackURL {
		return res, fmt.Errorf("%w: locator %s has no DASH path", common.ErrPathNotFound, locatorName)
	} else {
		logx.L().Warn("no DASH path for locator, playback URL left empty", "locator", locatorName)
	}
	w.advance(ctx, res, StatePathsResolved)

	// TokensIssued
	if res.PrimaryToken, err = w.Tokens.PrimaryToken(ctx, keyID); err != nil {
		return res, err
	}
	if secondary, ok := w.Tokens.(SecondaryMinter); ok {
		if res.SecondaryToken, err = secondary.SecondaryToken(ctx); err != nil {
			return res, err
		}
	}
	w.advance(ctx, res, StateTokensIssued)

	w.advance(ctx, res, StateDone)
	return res, nil
}

// Cleanup deletes the locator and the policy a run created. Both deletions
// are attempted; the first error is returned.
func (w *Workflow) Cleanup(ctx context.Context, res *Result) error {
	var first error
	if res.LocatorName != "" {
		if err := w.Client.DeleteStreamingLocator(ctx, res.LocatorName); err != nil {
			logx.L().Warn("could not delete streaming locator", "locator", res.LocatorName, "error", err)
			first = err
		}
	}
	if res.PolicyName != "" {
		if err := w.Client.DeleteContentKeyPolicy(ctx, res.PolicyName); err != nil {
			logx.L().Warn("could not delete content key policy", "policy", res.PolicyName, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
