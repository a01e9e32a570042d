package jwt

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/common/sig"
	"github.com/axent-pl/drmkit/policy"
	jwtx "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenWindow places a token's validity around the issue instant:
// nbf = now - NotBeforeSkew, exp = now + Lifetime.
type TokenWindow struct {
	NotBeforeSkew time.Duration
	Lifetime      time.Duration
}

// DefaultWindow is the 65 minute window, backdated by five minutes.
var DefaultWindow = TokenWindow{NotBeforeSkew: 5 * time.Minute, Lifetime: 60 * time.Minute}

// HoursWindow keeps the default backdating and expires after the given hours.
func HoursWindow(hours int) TokenWindow {
	return TokenWindow{NotBeforeSkew: DefaultWindow.NotBeforeSkew, Lifetime: time.Duration(hours) * time.Hour}
}

// Span is exp - nbf.
func (w TokenWindow) Span() time.Duration { return w.NotBeforeSkew + w.Lifetime }

// -- issue params
type ContentKeyTokenParams struct {
	Issuer   string
	Audience string
	Key      sig.SignatureKeyer
	Window   TokenWindow

	// KeyIdentifier, when set, is carried in the content-key-identifier claim.
	KeyIdentifier string
	// Artifact tags the produced token; defaults to ArtifactPrimaryToken.
	Artifact common.ArtifactKind
}

func (ContentKeyTokenParams) Kind() common.Kind { return common.JWT }

// issuer
type ContentKeyTokenIssuer struct {
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

var _ common.Issuer = &ContentKeyTokenIssuer{}

func (ContentKeyTokenIssuer) Kind() common.Kind { return common.JWT }

func (iss *ContentKeyTokenIssuer) Issue(ctx context.Context, issueParams common.IssueParams) ([]common.Artifact, error) {
	params, ok := issueParams.(ContentKeyTokenParams)
	if !ok {
		logx.L().Debug("could not cast IssueParams to ContentKeyTokenParams", "context", ctx)
		return nil, common.ErrInternal
	}

	claims, err := iss.BaseClaims(ctx, params)
	if err != nil {
		logx.L().Debug("could not build token claims", "context", ctx, "error", err)
		return nil, err
	}

	tokenBytes, err := iss.Sign(claims, params.Key)
	if err != nil {
		logx.L().Debug("could not sign token", "context", ctx, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	kind := params.Artifact
	if kind == common.ArtifactUnknown {
		kind = common.ArtifactPrimaryToken
	}
	return []common.Artifact{{
		Kind:      kind,
		MediaType: "application/jwt",
		Bytes:     tokenBytes,
		Metadata: map[string]any{
			"nbf": claims["nbf"],
			"exp": claims["exp"],
		},
	}}, nil
}

func (iss *ContentKeyTokenIssuer) BaseClaims(ctx context.Context, params ContentKeyTokenParams) (map[string]any, error) {
	if params.Issuer == "" || params.Audience == "" {
		logx.L().Debug("token issuer or audience missing", "context", ctx)
		return nil, fmt.Errorf("%w: issuer and audience are required", common.ErrInvalidInput)
	}
	if params.Window.Lifetime <= 0 {
		logx.L().Debug("non-positive token lifetime", "context", ctx, "lifetime", params.Window.Lifetime)
		return nil, fmt.Errorf("%w: token lifetime must be > 0", common.ErrInvalidInput)
	}

	now := time.Now()
	if iss.Now != nil {
		now = iss.Now()
	}

	claims := make(map[string]any)
	claims["iss"] = params.Issuer
	claims["aud"] = params.Audience
	claims["nbf"] = now.Add(-params.Window.NotBeforeSkew).Unix()
	claims["exp"] = now.Add(params.Window.Lifetime).Unix()
	if params.KeyIdentifier != "" {
		if _, err := uuid.Parse(params.KeyIdentifier); err != nil {
			logx.L().Debug("key identifier is not a GUID", "context", ctx, "error", err)
			return nil, fmt.Errorf("%w: key identifier %q is not a GUID", common.ErrInvalidInput, params.KeyIdentifier)
		}
		claims[policy.ContentKeyIdentifierClaimType] = params.KeyIdentifier
	}
	return claims, nil
}

func (iss *ContentKeyTokenIssuer) Sign(payload map[string]any, key sig.SignatureKeyer) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("could not sign payload: no signing key")
	}
	claims := jwtx.MapClaims{}
	maps.Copy(claims, payload)

	signingMethod, err := key.GetAlg().ToGoJWT()
	if err != nil {
		return nil, fmt.Errorf("could not sign payload: %w", err)
	}
	if _, isSecret := key.GetKey().([]byte); isSecret != key.GetAlg().IsSymmetric() {
		return nil, fmt.Errorf("could not sign payload: %s does not match key type %T", key.GetAlg(), key.GetKey())
	}

	token := jwtx.NewWithClaims(signingMethod, claims)
	if key.GetKid() != "" {
		token.Header["kid"] = key.GetKid()
	}
	if k, ok := key.(*sig.SignatureKey); ok {
		if x5t := k.Thumbprint(); x5t != "" {
			token.Header["x5t"] = x5t
		}
	}

	tokenString, err := token.SignedString(key.GetKey())
	if err != nil {
		return nil, fmt.Errorf("could not sign payload: %w", err)
	}
	return []byte(tokenString), nil
}
