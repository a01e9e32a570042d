package clientassertion

import (
	"context"
	"fmt"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/common/sig"
	jwtx "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AssertionType is the RFC 7523 client_assertion_type value.
const AssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

type ClientAssertionIssueParams struct {
	// ClientID is both iss and sub.
	ClientID string
	// Audience is the token endpoint URL.
	Audience string
	Exp      time.Duration
	// Key signs the assertion; a *sig.SignatureKey with a certificate adds x5t.
	Key sig.SignatureKeyer
}

func (ClientAssertionIssueParams) Kind() common.Kind { return common.ClientAssertion }

// AssertionClaims keeps aud a plain string, which is what the identity
// provider documents for client assertions.
type AssertionClaims struct {
	Audience string `json:"aud"`
	jwtx.RegisteredClaims
}

type ClientAssertionIssuer struct {
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

var _ common.Issuer = &ClientAssertionIssuer{}

func (ClientAssertionIssuer) Kind() common.Kind { return common.ClientAssertion }

func (iss *ClientAssertionIssuer) Issue(ctx context.Context, issueParams common.IssueParams) ([]common.Artifact, error) {
	p, ok := issueParams.(ClientAssertionIssueParams)
	if !ok {
		logx.L().Debug("could not cast IssueParams to ClientAssertionIssueParams", "context", ctx)
		return nil, common.ErrInternal
	}

	claims, err := iss.Claims(p)
	if err != nil {
		logx.L().Debug("could not build client assertion claims", "context", ctx, "error", err)
		return nil, common.ErrInternal
	}

	assertion, err := iss.Sign(claims, p.Key)
	if err != nil {
		logx.L().Debug("could not sign client assertion", "context", ctx, "error", err)
		return nil, common.ErrInternal
	}

	return []common.Artifact{
		{Kind: common.ArtifactClientAssertion, MediaType: "application/jwt", Bytes: assertion},
		{Kind: common.ArtifactClientAssertionType, MediaType: "text/plain", Bytes: []byte(AssertionType)},
	}, nil
}

// Claims returns the RFC 7523 claim set with a random jti.
func (iss *ClientAssertionIssuer) Claims(p ClientAssertionIssueParams) (AssertionClaims, error) {
	switch {
	case p.ClientID == "":
		return AssertionClaims{}, fmt.Errorf("client id is required")
	case p.Audience == "":
		return AssertionClaims{}, fmt.Errorf("audience is required")
	case p.Exp <= 0:
		return AssertionClaims{}, fmt.Errorf("exp must be > 0")
	}

	now := time.Now
	if iss.Now != nil {
		now = iss.Now
	}
	issuedAt := now().UTC()
	return AssertionClaims{
		Audience: p.Audience,
		RegisteredClaims: jwtx.RegisteredClaims{
			Issuer:    p.ClientID,
			Subject:   p.ClientID,
			IssuedAt:  jwtx.NewNumericDate(issuedAt),
			NotBefore: jwtx.NewNumericDate(issuedAt),
			ExpiresAt: jwtx.NewNumericDate(issuedAt.Add(p.Exp)),
			ID:        uuid.NewString(),
		},
	}, nil
}

func (iss *ClientAssertionIssuer) Sign(claims jwtx.Claims, key sig.SignatureKeyer) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("could not sign assertion: no signing key")
	}
	method, err := key.GetAlg().ToGoJWT()
	if err != nil {
		return nil, fmt.Errorf("could not sign assertion: %w", err)
	}

	token := jwtx.NewWithClaims(method, claims)
	if kid := key.GetKid(); kid != "" {
		token.Header["kid"] = kid
	}
	if k, ok := key.(*sig.SignatureKey); ok {
		if x5t := k.Thumbprint(); x5t != "" {
			token.Header["x5t"] = x5t
		}
	}

	signed, err := token.SignedString(key.GetKey())
	if err != nil {
		return nil, fmt.Errorf("could not sign assertion: %w", err)
	}
	return []byte(signed), nil
}
