package swt

import (
	"context"
	"time"

	"github.com/axent-pl/drmkit/common"
)

// Minter issues the primary token for Swt restrictions. There is no
// secondary token: an Swt restriction has no alternate key.
type Minter struct {
	Issuer   string
	Audience string
	Key      []byte
	Lifetime time.Duration

	issuer Issuer
}

func (m *Minter) PrimaryToken(ctx context.Context, keyIdentifier string) (string, error) {
	artifacts, err := m.issuer.Issue(ctx, IssueParams{
		Issuer:        m.Issuer,
		Audience:      m.Audience,
		Key:           m.Key,
		Lifetime:      m.Lifetime,
		KeyIdentifier: keyIdentifier,
	})
	if err != nil {
		return "", err
	}
	token, err := common.ArtifactWithKind(artifacts, common.ArtifactPrimaryToken)
	if err != nil {
		return "", err
	}
	return token.String(), nil
}
