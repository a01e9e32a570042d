package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/jwt"
	"github.com/axent-pl/drmkit/policy"
	"github.com/axent-pl/drmkit/provision"
	"github.com/axent-pl/drmkit/swt"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const keyIDFlag = "key-id"

// VerifiedToken is the rendered result of token verify.
type VerifiedToken struct {
	Type          policy.TokenType `json:"type" yaml:"type"`
	KeyIdentifier string           `json:"keyIdentifier,omitempty" yaml:"keyIdentifier,omitempty"`
	NotBefore     *time.Time       `json:"notBefore,omitempty" yaml:"notBefore,omitempty"`
	ExpiresAt     time.Time        `json:"expiresAt" yaml:"expiresAt"`
	SignedWith    string           `json:"signedWith" yaml:"signedWith"`
}

func newTokenCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or check content key tokens without touching the media platform",
	}

	var keyID string
	primary := &cobra.Command{
		Use:   "primary",
		Short: "Issue a primary token for a content key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := uuid.Parse(keyID); err != nil {
				return fmt.Errorf("%w: --%s must be a GUID", common.ErrInvalidInput, keyIDFlag)
			}
			minter, err := a.tokenMinter()
			if err != nil {
				return err
			}
			token, err := minter.PrimaryToken(cmd.Context(), keyID)
			if err != nil {
				return err
			}
			return a.render(token)
		},
	}
	primary.Flags().StringVar(&keyID, keyIDFlag, "", "content key identifier (GUID)")
	_ = primary.MarkFlagRequired(keyIDFlag)

	secondary := &cobra.Command{
		Use:   "secondary",
		Short: "Issue a secondary token signed with the symmetric key (Jwt only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			minter, err := a.tokenMinter()
			if err != nil {
				return err
			}
			s, ok := minter.(provision.SecondaryMinter)
			if !ok {
				return fmt.Errorf("%w: %s tokens have no secondary form", common.ErrInvalidInput, a.cfg.TokenType)
			}
			token, err := s.SecondaryToken(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(token)
		},
	}

	verify := &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Check a token against the restriction the policy would enforce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			builder, err := a.policyBuilder()
			if err != nil {
				return err
			}
			restriction, err := builder.Restriction()
			if err != nil {
				return err
			}
			out, err := verifyToken(cmd, restriction, args[0])
			if err != nil {
				return err
			}
			return a.render(out)
		},
	}

	cmd.AddCommand(primary, secondary, verify)
	return cmd
}

func (a *app) tokenMinter() (provision.TokenMinter, error) {
	builder, err := a.policyBuilder()
	if err != nil {
		return nil, err
	}
	return a.minter(builder)
}

func verifyToken(cmd *cobra.Command, restriction *policy.TokenRestriction, token string) (VerifiedToken, error) {
	ctx := cmd.Context()
	if restriction.RestrictionTokenType == policy.TokenTypeSWT {
		claims, err := swt.Verify(ctx, strings.TrimPrefix(strings.TrimSpace(token), "Bearer "), restriction, time.Now())
		if err != nil {
			return VerifiedToken{}, err
		}
		return VerifiedToken{
			Type:          policy.TokenTypeSWT,
			KeyIdentifier: claims.KeyIdentifier,
			ExpiresAt:     claims.ExpiresOn,
			SignedWith:    "primary",
		}, nil
	}

	creds, err := jwt.NewJWTCredentialsFromHeader(token)
	if err != nil {
		return VerifiedToken{}, err
	}
	verifier := &jwt.ContentKeyTokenVerifier{}
	claims, err := verifier.Verify(ctx, creds, restriction)
	if err != nil {
		return VerifiedToken{}, err
	}
	signedWith := "primary"
	if claims.KeyIndex >= 0 {
		signedWith = fmt.Sprintf("alternate[%d]", claims.KeyIndex)
	}
	nbf := claims.NotBefore
	return VerifiedToken{
		Type:          policy.TokenTypeJWT,
		KeyIdentifier: claims.KeyIdentifier,
		NotBefore:     &nbf,
		ExpiresAt:     claims.ExpiresAt,
		SignedWith:    signedWith,
	}, nil
}
