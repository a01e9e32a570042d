package clientassertion

import (
	"context"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AssertionLifetime is how long each client assertion stays valid.
const AssertionLifetime = 5 * time.Minute

type assertionTokenSource struct {
	ctx       context.Context
	creds     ClientAssertionCredentials
	authority common.Authority
	issuer    ClientAssertionIssuer
}

// NewTokenSource returns a cached token source that signs a fresh client
// assertion with the certificate for every token request.
func NewTokenSource(ctx context.Context, creds ClientAssertionCredentials, authority common.Authority) (oauth2.TokenSource, error) {
	if _, err := NewClientAssertionCredentials(creds.TenantID, creds.ClientID, creds.Certificate); err != nil {
		return nil, err
	}
	if err := authority.Validate(); err != nil {
		return nil, err
	}
	return oauth2.ReuseTokenSource(nil, &assertionTokenSource{ctx: ctx, creds: creds, authority: authority}), nil
}

func (s *assertionTokenSource) Token() (*oauth2.Token, error) {
	key, err := s.creds.Certificate.SigningKey()
	if err != nil {
		return nil, err
	}
	tokenURL := s.authority.TokenURL(s.creds.TenantID)
	artifacts, err := s.issuer.Issue(s.ctx, ClientAssertionIssueParams{
		ClientID: s.creds.ClientID,
		Audience: tokenURL,
		Exp:      AssertionLifetime,
		Key:      key,
	})
	if err != nil {
		return nil, err
	}
	assertion, err := common.ArtifactWithKind(artifacts, common.ArtifactClientAssertion)
	if err != nil {
		return nil, err
	}
	logx.L().Debug("requesting token with client assertion", "context", s.ctx, "client_id", s.creds.ClientID)

	cfg := &clientcredentials.Config{
		ClientID:  s.creds.ClientID,
		TokenURL:  tokenURL,
		Scopes:    []string{common.DefaultScope(s.authority.Audience)},
		AuthStyle: oauth2.AuthStyleInParams,
		EndpointParams: map[string][]string{
			"client_assertion_type": {AssertionType},
			"client_assertion":      {assertion.String()},
		},
	}
	return cfg.Token(s.ctx)
}
