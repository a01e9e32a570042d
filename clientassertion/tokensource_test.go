package clientassertion_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/axent-pl/drmkit/clientassertion"
	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/sig/sigtest"
)

func TestNewTokenSource(t *testing.T) {
	cert := sigtest.NewCertificate(t)

	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"arm-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	creds, err := clientassertion.NewClientAssertionCredentials("tenant", testClientID, cert)
	if err != nil {
		t.Fatalf("NewClientAssertionCredentials() failed: %v", err)
	}
	authority := common.Authority{AadEndpoint: srv.URL, Audience: "https://management.core.windows.net/"}
	ts, err := clientassertion.NewTokenSource(ctx, creds, authority)
	if err != nil {
		t.Fatalf("NewTokenSource() failed: %v", err)
	}
	tok, err := common.Acquire(ctx, ts)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	if tok.AccessToken != "arm-token" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}
	if got := form.Get("client_assertion_type"); got != clientassertion.AssertionType {
		t.Errorf("client_assertion_type = %q", got)
	}
	if got := form.Get("client_secret"); got != "" {
		t.Errorf("client_secret should not be sent, got %q", got)
	}
	if got := form.Get("scope"); got != "https://management.core.windows.net//.default" {
		t.Errorf("scope = %q", got)
	}
	_, claims := parseSignedToken(t, []byte(form.Get("client_assertion")), cert.Leaf.PublicKey)
	claimStringValue(t, claims, "aud", authority.TokenURL("tenant"))
}

func TestNewClientAssertionCredentials(t *testing.T) {
	cert := sigtest.NewCertificate(t)
	tests := []struct {
		name     string
		tenant   string
		clientID string
		wantErr  bool
		nilCert  bool
	}{
		{name: "valid", tenant: "tenant", clientID: testClientID},
		{name: "bad client id", tenant: "tenant", clientID: "app", wantErr: true},
		{name: "no certificate", tenant: "tenant", clientID: testClientID, nilCert: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cert
			if tt.nilCert {
				c = nil
			}
			_, err := clientassertion.NewClientAssertionCredentials(tt.tenant, tt.clientID, c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClientAssertionCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, common.ErrInvalidInput) {
				t.Errorf("error %v does not wrap ErrInvalidInput", err)
			}
		})
	}
}
