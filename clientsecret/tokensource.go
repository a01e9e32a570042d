package clientsecret

import (
	"context"

	"github.com/axent-pl/drmkit/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NewTokenSource returns a cached client-credentials token source for the
// authority's default scope. ctx carries the HTTP client used for token
// requests (see oauth2.HTTPClient).
func NewTokenSource(ctx context.Context, creds ClientSecretCredentials, authority common.Authority) (oauth2.TokenSource, error) {
	if _, err := NewClientSecretCredentials(creds.TenantID, creds.ClientID, creds.ClientSecret); err != nil {
		return nil, err
	}
	if err := authority.Validate(); err != nil {
		return nil, err
	}
	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     authority.TokenURL(creds.TenantID),
		Scopes:       []string{common.DefaultScope(authority.Audience)},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cfg.TokenSource(ctx), nil
}
