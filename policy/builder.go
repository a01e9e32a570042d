package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/common/sig"
)

// Widevine rental, playback and license windows.
const (
	RentalDuration   = 30 * 24 * time.Hour
	PlaybackDuration = 3 * time.Hour
	LicenseDuration  = 7 * 24 * time.Hour
)

// AnalogTelevisionQualityLevel is the CGMS-A value sent with the explicit
// analog television output restriction.
const AnalogTelevisionQualityLevel = 2

// Builder assembles the PlayReady and Widevine options of a content-key
// policy together with the token restriction they share.
type Builder struct {
	Issuer       string
	Audience     string
	Certificate  *sig.Certificate
	SymmetricKey []byte
	TokenType    TokenType
}

// Options returns exactly two options, PlayReady first, Widevine second.
func (b *Builder) Options(ctx context.Context) ([]Option, error) {
	restriction, err := b.Restriction()
	if err != nil {
		logx.L().Debug("could not build token restriction", "context", ctx, "error", err)
		return nil, err
	}

	widevine, err := WidevineLicenseConfiguration()
	if err != nil {
		logx.L().Debug("could not serialize widevine template", "context", ctx, "error", err)
		return nil, fmt.Errorf("%w: could not serialize widevine template", common.ErrInternal)
	}

	return []Option{
		{Name: "playready", Configuration: PlayReadyLicenseConfiguration(), Restriction: restriction},
		{Name: "widevine", Configuration: widevine, Restriction: restriction},
	}, nil
}

// Restriction builds the token restriction enforced by the key-delivery service.
//
// For JWT the certificate is the primary key and the symmetric key is
// accepted as an alternate; for SWT only the symmetric key exists and the
// content-key-identifier claim is required.
func (b *Builder) Restriction() (*TokenRestriction, error) {
	if b.Issuer == "" || b.Audience == "" {
		return nil, fmt.Errorf("%w: token issuer and audience are required", common.ErrInvalidInput)
	}
	switch b.tokenType() {
	case TokenTypeJWT:
		if b.Certificate == nil || b.Certificate.Leaf == nil {
			return nil, fmt.Errorf("%w: jwt restriction requires a certificate", common.ErrInvalidInput)
		}
		alternates := make([]TokenKey, 0, 1)
		if len(b.SymmetricKey) > 0 {
			alternates = append(alternates, TokenKey{Symmetric: b.SymmetricKey})
		}
		return &TokenRestriction{
			Issuer:                    b.Issuer,
			Audience:                  b.Audience,
			PrimaryVerificationKey:    TokenKey{X509RawBody: b.Certificate.RawData()},
			AlternateVerificationKeys: alternates,
			RequiredClaims:            []TokenClaim{},
			RestrictionTokenType:      TokenTypeJWT,
		}, nil
	case TokenTypeSWT:
		if len(b.SymmetricKey) == 0 {
			return nil, fmt.Errorf("%w: swt restriction requires a symmetric key", common.ErrInvalidInput)
		}
		return &TokenRestriction{
			Issuer:                    b.Issuer,
			Audience:                  b.Audience,
			PrimaryVerificationKey:    TokenKey{Symmetric: b.SymmetricKey},
			AlternateVerificationKeys: []TokenKey{},
			RequiredClaims:            []TokenClaim{ContentKeyIdentifierClaim},
			RestrictionTokenType:      TokenTypeSWT,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown token type %q", common.ErrInvalidInput, b.TokenType)
	}
}

func (b *Builder) tokenType() TokenType {
	if b.TokenType == "" {
		return TokenTypeJWT
	}
	return b.TokenType
}

// PlayReadyLicenseConfiguration is a persistent, test-device friendly
// license with analog output restrictions.
func PlayReadyLicenseConfiguration() PlayReadyConfiguration {
	beginDate := time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	return PlayReadyConfiguration{
		Licenses: []PlayReadyLicense{
			{
				AllowTestDevices:   true,
				BeginDate:          &beginDate,
				ContentKeyLocation: KeyFromHeader{},
				ContentType:        ContentTypeUltraVioletStreaming,
				LicenseType:        LicenseTypePersistent,
				PlayRight: &PlayReadyPlayRight{
					ImageConstraintForAnalogComponentVideoRestriction: true,
					ExplicitAnalogTelevisionOutputRestriction: &ExplicitAnalogTelevisionRestriction{
						BestEffort:        true,
						ConfigurationData: AnalogTelevisionQualityLevel,
					},
					AllowPassingVideoContentToUnknownOutput: UnknownOutputAllowed,
				},
			},
		},
	}
}

// NewWidevineTemplate returns the Widevine policy document.
func NewWidevineTemplate() WidevineTemplate {
	return WidevineTemplate{
		AllowedTrackTypes: "SD_HD",
		ContentKeySpecs: []ContentKeySpec{
			{
				TrackType:                "SD",
				SecurityLevel:            1,
				RequiredOutputProtection: &OutputProtection{HDCP: "HDCP_NONE"},
			},
		},
		PolicyOverrides: PolicyOverrides{
			CanPlay:                 true,
			CanPersist:              true,
			CanRenew:                false,
			RentalDurationSeconds:   int64(RentalDuration.Seconds()),
			PlaybackDurationSeconds: int64(PlaybackDuration.Seconds()),
			LicenseDurationSeconds:  int64(LicenseDuration.Seconds()),
		},
	}
}

func WidevineLicenseConfiguration() (WidevineConfiguration, error) {
	template, err := json.Marshal(NewWidevineTemplate())
	if err != nil {
		return WidevineConfiguration{}, err
	}
	return WidevineConfiguration{WidevineTemplate: string(template)}, nil
}
