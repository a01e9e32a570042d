// Package swt issues and checks Simple Web Tokens, the form-encoded HMAC
// tokens accepted by restrictions of type Swt.
package swt

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/policy"
	"github.com/google/uuid"
)

const (
	fieldIssuer    = "Issuer"
	fieldAudience  = "Audience"
	fieldExpiresOn = "ExpiresOn"
	fieldSignature = "HMACSHA256"
)

type IssueParams struct {
	Issuer        string
	Audience      string
	Key           []byte
	Lifetime      time.Duration
	KeyIdentifier string
}

func (IssueParams) Kind() common.Kind { return common.SWT }

type Issuer struct {
	Now func() time.Time
}

var _ common.Issuer = &Issuer{}

func (Issuer) Kind() common.Kind { return common.SWT }

func (iss *Issuer) Issue(ctx context.Context, issueParams common.IssueParams) ([]common.Artifact, error) {
	params, ok := issueParams.(IssueParams)
	if !ok {
		logx.L().Debug("could not cast IssueParams to swt.IssueParams", "context", ctx)
		return nil, common.ErrInternal
	}
	if params.Issuer == "" || params.Audience == "" || len(params.Key) == 0 || params.Lifetime <= 0 {
		return nil, fmt.Errorf("%w: issuer, audience, key and lifetime are required", common.ErrInvalidInput)
	}
	if params.KeyIdentifier != "" {
		if _, err := uuid.Parse(params.KeyIdentifier); err != nil {
			return nil, fmt.Errorf("%w: key identifier %q is not a GUID", common.ErrInvalidInput, params.KeyIdentifier)
		}
	}

	now := time.Now()
	if iss.Now != nil {
		now = iss.Now()
	}
	expiresOn := now.Add(params.Lifetime).Unix()

	// field order is significant, the signature covers the encoded string
	var b strings.Builder
	writeField(&b, policy.ContentKeyIdentifierClaimType, params.KeyIdentifier)
	writeField(&b, fieldIssuer, params.Issuer)
	writeField(&b, fieldAudience, params.Audience)
	writeField(&b, fieldExpiresOn, strconv.FormatInt(expiresOn, 10))
	unsigned := b.String()

	token := unsigned + "&" + fieldSignature + "=" + url.QueryEscape(sign(unsigned, params.Key))
	return []common.Artifact{{
		Kind:      common.ArtifactPrimaryToken,
		MediaType: "application/x-www-form-urlencoded",
		Bytes:     []byte(token),
		Metadata:  map[string]any{"exp": expiresOn},
	}}, nil
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('&')
	}
	b.WriteString(url.QueryEscape(name))
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(value))
}

func sign(unsigned string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(unsigned))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Claims is the content of a verified token.
type Claims struct {
	Issuer        string
	Audience      string
	ExpiresOn     time.Time
	KeyIdentifier string
}

// Verify checks the signature against key and the issuer, audience and
// expiry against the restriction and now.
func Verify(ctx context.Context, token string, restriction *policy.TokenRestriction, now time.Time) (Claims, error) {
	if restriction == nil || restriction.RestrictionTokenType != policy.TokenTypeSWT || restriction.PrimaryVerificationKey.Symmetric == nil {
		logx.L().Debug("restriction does not accept swt", "context", ctx)
		return Claims{}, common.ErrInvalidInput
	}

	idx := strings.LastIndex(token, "&"+fieldSignature+"=")
	if idx < 0 {
		logx.L().Debug("swt has no signature", "context", ctx)
		return Claims{}, common.ErrInvalidInput
	}
	unsigned, encodedSig := token[:idx], token[idx+len(fieldSignature)+2:]
	gotSig, err := url.QueryUnescape(encodedSig)
	if err != nil {
		logx.L().Debug("could not decode swt signature", "context", ctx, "error", err)
		return Claims{}, common.ErrInvalidInput
	}
	if !hmac.Equal([]byte(gotSig), []byte(sign(unsigned, restriction.PrimaryVerificationKey.Symmetric))) {
		logx.L().Debug("swt signature mismatch", "context", ctx)
		return Claims{}, common.ErrInvalidCredentials
	}

	values, err := url.ParseQuery(unsigned)
	if err != nil {
		logx.L().Debug("could not parse swt fields", "context", ctx, "error", err)
		return Claims{}, common.ErrInvalidInput
	}
	expiresOn, err := strconv.ParseInt(values.Get(fieldExpiresOn), 10, 64)
	if err != nil {
		logx.L().Debug("swt has no valid ExpiresOn", "context", ctx, "error", err)
		return Claims{}, common.ErrInvalidInput
	}
	claims := Claims{
		Issuer:        values.Get(fieldIssuer),
		Audience:      values.Get(fieldAudience),
		ExpiresOn:     time.Unix(expiresOn, 0),
		KeyIdentifier: values.Get(policy.ContentKeyIdentifierClaimType),
	}

	switch {
	case claims.Issuer != restriction.Issuer:
		logx.L().Debug("swt issuer mismatch", "context", ctx)
		return Claims{}, common.ErrInvalidCredentials
	case claims.Audience != restriction.Audience:
		logx.L().Debug("swt audience mismatch", "context", ctx)
		return Claims{}, common.ErrInvalidCredentials
	case !now.Before(claims.ExpiresOn):
		logx.L().Debug("swt expired", "context", ctx)
		return Claims{}, common.ErrInvalidCredentials
	}
	for _, rc := range restriction.RequiredClaims {
		got := values.Get(rc.ClaimType)
		if got == "" || (rc.ClaimValue != "" && got != rc.ClaimValue) {
			logx.L().Debug("swt is missing required claim", "context", ctx, "claim", rc.ClaimType)
			return Claims{}, common.ErrInvalidCredentials
		}
	}
	return claims, nil
}
