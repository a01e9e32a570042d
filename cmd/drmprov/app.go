package main

import (
	"context"
	"fmt"
	"io"

	azarm "github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	azpolicy "github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/axent-pl/drmkit/clientassertion"
	"github.com/axent-pl/drmkit/clientsecret"
	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/common/sig"
	"github.com/axent-pl/drmkit/config"
	"github.com/axent-pl/drmkit/jwt"
	"github.com/axent-pl/drmkit/media"
	"github.com/axent-pl/drmkit/media/arm"
	"github.com/axent-pl/drmkit/media/memory"
	"github.com/axent-pl/drmkit/output"
	"github.com/axent-pl/drmkit/policy"
	"github.com/axent-pl/drmkit/provision"
	"github.com/axent-pl/drmkit/swt"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

type app struct {
	v        *viper.Viper
	flags    rootFlags
	cfg      config.AccountConfig
	renderer output.Renderer

	stdin          io.Reader
	stdout, stderr io.Writer

	// newMediaClient is replaceable for tests.
	newMediaClient func(ctx context.Context) (media.Client, provision.Authenticator, error)
}

func (a *app) render(v any) error {
	return a.renderer.Render(a.stdout, v)
}

// signing loads the token material: the certificate (Jwt only) and the
// shared symmetric key.
func (a *app) signing() (*sig.Certificate, []byte, error) {
	if err := a.cfg.ValidateSigning(); err != nil {
		return nil, nil, err
	}
	key, err := sig.DecodeSymmetricKey(a.cfg.SymmetricKey)
	if err != nil {
		return nil, nil, err
	}
	if a.cfg.TokenType != policy.TokenTypeJWT {
		return nil, key, nil
	}
	cert, err := sig.LoadCertificate(a.cfg.CertificatePath, a.cfg.CertificatePassword)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

func (a *app) policyBuilder() (*policy.Builder, error) {
	cert, key, err := a.signing()
	if err != nil {
		return nil, err
	}
	return &policy.Builder{
		Issuer:       a.cfg.TokenIssuer,
		Audience:     a.cfg.TokenAudience,
		Certificate:  cert,
		SymmetricKey: key,
		TokenType:    a.cfg.TokenType,
	}, nil
}

func (a *app) minter(b *policy.Builder) (provision.TokenMinter, error) {
	if b.TokenType == policy.TokenTypeSWT {
		return &swt.Minter{
			Issuer:   b.Issuer,
			Audience: b.Audience,
			Key:      b.SymmetricKey,
			Lifetime: a.cfg.TokenLifetime,
		}, nil
	}
	m, err := jwt.NewMinter(b.Issuer, b.Audience, b.Certificate, b.SymmetricKey)
	if err != nil {
		return nil, err
	}
	if a.cfg.TokenLifetime > 0 {
		m.PrimaryWindow = jwt.TokenWindow{NotBeforeSkew: jwt.DefaultWindow.NotBeforeSkew, Lifetime: a.cfg.TokenLifetime}
	}
	return m, nil
}

func (a *app) mediaClient(ctx context.Context) (media.Client, provision.Authenticator, error) {
	if a.newMediaClient != nil {
		return a.newMediaClient(ctx)
	}
	if a.cfg.Platform == config.PlatformMemory {
		logx.L().Info("using the in-memory media platform, nothing is sent to Azure")
		return memory.New(), nil, nil
	}

	ts, err := a.tokenSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	arm.ForwardSDKLog()
	client, err := arm.New(arm.TokenCredential{Source: ts}, arm.Account{
		ArmEndpoint:    a.cfg.ArmEndpoint,
		ArmAudience:    a.cfg.ArmAadAudience,
		SubscriptionID: a.cfg.SubscriptionID,
		ResourceGroup:  a.cfg.ResourceGroup,
		AccountName:    a.cfg.AccountName,
	}, &azarm.ClientOptions{ClientOptions: azpolicy.ClientOptions{
		Cloud: cloud.Configuration{ActiveDirectoryAuthorityHost: a.cfg.AadEndpoint},
	}})
	if err != nil {
		return nil, nil, err
	}
	auth := provision.AuthenticatorFunc(func(ctx context.Context) error {
		_, err := common.Acquire(ctx, ts)
		return err
	})
	return client, auth, nil
}

// tokenSource picks the client secret grant when AadSecret is set and the
// certificate assertion grant otherwise.
func (a *app) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	authority := a.cfg.Authority()
	if !a.cfg.UsesCertificateAuth() {
		creds, err := clientsecret.NewClientSecretCredentials(a.cfg.AadTenantID, a.cfg.AadClientID, a.cfg.AadSecret)
		if err != nil {
			return nil, err
		}
		return clientsecret.NewTokenSource(ctx, creds, authority)
	}
	cert, err := sig.LoadCertificate(a.cfg.CertificatePath, a.cfg.CertificatePassword)
	if err != nil {
		return nil, fmt.Errorf("could not load the application certificate: %w", err)
	}
	creds, err := clientassertion.NewClientAssertionCredentials(a.cfg.AadTenantID, a.cfg.AadClientID, cert)
	if err != nil {
		return nil, err
	}
	return clientassertion.NewTokenSource(ctx, creds, authority)
}
