package jwt

import (
	"context"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/sig"
)

// Minter produces the two bearer tokens handed to players: the primary
// token signed with the certificate key and carrying the content key id,
// and the secondary token signed with the shared symmetric key.
type Minter struct {
	Issuer    string
	Audience  string
	Primary   *sig.SignatureKey
	Secondary *sig.SignatureKey
	// PrimaryWindow applies to the primary token only; the secondary
	// token always uses DefaultWindow.
	PrimaryWindow TokenWindow

	issuer ContentKeyTokenIssuer
}

func NewMinter(issuer, audience string, cert *sig.Certificate, symmetricKey []byte) (*Minter, error) {
	primary, err := cert.SigningKey()
	if err != nil {
		return nil, err
	}
	return &Minter{
		Issuer:        issuer,
		Audience:      audience,
		Primary:       primary,
		Secondary:     &sig.SignatureKey{Key: symmetricKey, Alg: sig.SigAlgHS256},
		PrimaryWindow: DefaultWindow,
	}, nil
}

func (m *Minter) PrimaryToken(ctx context.Context, keyIdentifier string) (string, error) {
	window := m.PrimaryWindow
	if window.Lifetime <= 0 {
		window = DefaultWindow
	}
	return m.issue(ctx, ContentKeyTokenParams{
		Issuer:        m.Issuer,
		Audience:      m.Audience,
		Key:           m.Primary,
		Window:        window,
		KeyIdentifier: keyIdentifier,
		Artifact:      common.ArtifactPrimaryToken,
	})
}

func (m *Minter) SecondaryToken(ctx context.Context) (string, error) {
	return m.issue(ctx, ContentKeyTokenParams{
		Issuer:   m.Issuer,
		Audience: m.Audience,
		Key:      m.Secondary,
		Window:   DefaultWindow,
		Artifact: common.ArtifactSecondaryToken,
	})
}

func (m *Minter) issue(ctx context.Context, params ContentKeyTokenParams) (string, error) {
	artifacts, err := m.issuer.Issue(ctx, params)
	if err != nil {
		return "", err
	}
	token, err := common.ArtifactWithKind(artifacts, params.Artifact)
	if err != nil {
		return "", err
	}
	return token.String(), nil
}
