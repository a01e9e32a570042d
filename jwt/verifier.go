package jwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/common/sig"
	"github.com/axent-pl/drmkit/policy"
	jwtx "github.com/golang-jwt/jwt/v5"
)

// ContentKeyClaims is what a verified token grants.
type ContentKeyClaims struct {
	KeyIdentifier string
	NotBefore     time.Time
	ExpiresAt     time.Time
	// KeyIndex is -1 for the primary key, otherwise the alternate key index.
	KeyIndex int
}

// ContentKeyTokenVerifier checks a token the way the key-delivery service
// would for a given restriction. It is a local preflight only.
type ContentKeyTokenVerifier struct {
	Leeway time.Duration
}

func (v *ContentKeyTokenVerifier) Kind() common.Kind { return common.JWT }

func (v *ContentKeyTokenVerifier) Verify(ctx context.Context, in common.Credentials, restriction *policy.TokenRestriction) (ContentKeyClaims, error) {
	jwtInput, ok := in.(JWTCredentials)
	if !ok {
		logx.L().Debug("could not cast Credentials to JWTCredentials", "context", ctx)
		return ContentKeyClaims{}, common.ErrInvalidInput
	}
	if jwtInput.Token == "" {
		logx.L().Debug("empty token", "context", ctx)
		return ContentKeyClaims{}, common.ErrInvalidInput
	}
	if restriction == nil || restriction.RestrictionTokenType != policy.TokenTypeJWT {
		logx.L().Debug("restriction does not accept jwt", "context", ctx)
		return ContentKeyClaims{}, common.ErrInvalidInput
	}

	keys, err := VerificationKeys(restriction)
	if err != nil {
		logx.L().Debug("could not derive verification keys", "context", ctx, "error", err)
		return ContentKeyClaims{}, common.ErrInvalidInput
	}

	for i, keyConfig := range keys {
		opts := v.buildParserOptions(restriction, keyConfig)
		claims, err := parseJWT(jwtInput.Token, keyConfig.Key, opts)
		if err != nil {
			logx.L().Debug("token rejected by key", "context", ctx, "key", i, "error", err)
			continue
		}
		if err := checkRequiredClaims(claims, restriction.RequiredClaims); err != nil {
			logx.L().Debug("token is missing required claims", "context", ctx, "error", err)
			return ContentKeyClaims{}, common.ErrInvalidCredentials
		}
		return toContentKeyClaims(claims, i-1), nil
	}

	return ContentKeyClaims{}, common.ErrInvalidCredentials
}

// VerificationKeys lists the primary key first, then the alternates.
func VerificationKeys(restriction *policy.TokenRestriction) ([]sig.SignatureVerificationKey, error) {
	all := append([]policy.TokenKey{restriction.PrimaryVerificationKey}, restriction.AlternateVerificationKeys...)
	keys := make([]sig.SignatureVerificationKey, 0, len(all))
	for _, k := range all {
		key, err := verificationKey(k)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func verificationKey(k policy.TokenKey) (sig.SignatureVerificationKey, error) {
	switch {
	case k.X509RawBody != nil:
		cert, err := x509.ParseCertificate(k.X509RawBody)
		if err != nil {
			return sig.SignatureVerificationKey{}, fmt.Errorf("could not parse x509 token key: %w", err)
		}
		switch cert.PublicKey.(type) {
		case *rsa.PublicKey:
			return sig.SignatureVerificationKey{Kid: sig.Thumbprint(cert), Key: cert.PublicKey, Alg: sig.SigAlgRS256}, nil
		case *ecdsa.PublicKey:
			return sig.SignatureVerificationKey{Kid: sig.Thumbprint(cert), Key: cert.PublicKey, Alg: sig.SigAlgES256}, nil
		default:
			return sig.SignatureVerificationKey{}, fmt.Errorf("unsupported x509 key type %T", cert.PublicKey)
		}
	case k.Symmetric != nil:
		return sig.SignatureVerificationKey{Key: k.Symmetric, Alg: sig.SigAlgHS256}, nil
	}
	return sig.SignatureVerificationKey{}, errors.New("empty token key")
}

// Build parser options
func (v *ContentKeyTokenVerifier) buildParserOptions(restriction *policy.TokenRestriction, keyConf sig.SignatureVerificationKey) []jwtx.ParserOption {
	opts := []jwtx.ParserOption{jwtx.WithExpirationRequired()}
	if v.Leeway > 0 {
		opts = append(opts, jwtx.WithLeeway(v.Leeway))
	}
	if restriction.Issuer != "" {
		opts = append(opts, jwtx.WithIssuer(restriction.Issuer))
	}
	if restriction.Audience != "" {
		opts = append(opts, jwtx.WithAudience(restriction.Audience))
	}
	if alg, err := keyConf.Alg.ToOAuth(); err == nil {
		opts = append(opts, jwtx.WithValidMethods([]string{alg}))
	}
	return opts
}

func parseJWT(token string, key any, opts []jwtx.ParserOption) (jwtx.MapClaims, error) {
	// verify and parse token with given key and options
	claims := jwtx.MapClaims{}
	jwtToken, err := jwtx.ParseWithClaims(
		token,
		claims,
		func(t *jwtx.Token) (interface{}, error) {
			return key, nil
		},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("could not parse token: %w", err)
	}
	if jwtToken == nil {
		return nil, errors.New("token is empty")
	}
	if !jwtToken.Valid {
		return nil, errors.New("token is invalid")
	}
	return claims, nil
}

func checkRequiredClaims(claims jwtx.MapClaims, required []policy.TokenClaim) error {
	for _, rc := range required {
		got, ok := claims[rc.ClaimType]
		if !ok {
			return fmt.Errorf("missing claim `%s`", rc.ClaimType)
		}
		if rc.ClaimValue != "" && got != rc.ClaimValue {
			return fmt.Errorf("invalid claim `%s` value", rc.ClaimType)
		}
	}
	return nil
}

func toContentKeyClaims(claims jwtx.MapClaims, keyIndex int) ContentKeyClaims {
	out := ContentKeyClaims{KeyIndex: keyIndex}
	if kid, ok := claims[policy.ContentKeyIdentifierClaimType].(string); ok {
		out.KeyIdentifier = kid
	}
	if nbf, err := claims.GetNotBefore(); err == nil && nbf != nil {
		out.NotBefore = nbf.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out
}
