package policy

import (
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/mediaservices/armmediaservices/v3"
)

const ContentKeyIdentifierClaimType = "urn:microsoft:azure:mediaservices:contentkeyidentifier"

type TokenType string

const (
	TokenTypeJWT TokenType = "Jwt"
	TokenTypeSWT TokenType = "Swt"
)

type LicenseType string

const (
	LicenseTypeNonPersistent LicenseType = "NonPersistent"
	LicenseTypePersistent    LicenseType = "Persistent"
)

type ContentType string

const (
	ContentTypeUnspecified          ContentType = "Unspecified"
	ContentTypeUltraVioletDownload  ContentType = "UltraVioletDownload"
	ContentTypeUltraVioletStreaming ContentType = "UltraVioletStreaming"
)

type UnknownOutputPassingOption string

const (
	UnknownOutputNotAllowed                   UnknownOutputPassingOption = "NotAllowed"
	UnknownOutputAllowed                      UnknownOutputPassingOption = "Allowed"
	UnknownOutputAllowedWithVideoConstriction UnknownOutputPassingOption = "AllowedWithVideoConstriction"
)

// Configuration is a DRM-scheme specific license configuration.
type Configuration interface {
	// Model converts the configuration to its management API form.
	Model() (armmediaservices.ContentKeyPolicyConfigurationClassification, error)
}

// Option pairs a license configuration with the restriction the
// key-delivery service enforces before releasing the key.
type Option struct {
	Name          string
	Configuration Configuration
	Restriction   *TokenRestriction
}

// ---------- PlayReady ----------

type PlayReadyConfiguration struct {
	Licenses []PlayReadyLicense
}

type PlayReadyLicense struct {
	AllowTestDevices   bool
	BeginDate          *time.Time
	ExpirationDate     *time.Time
	PlayRight          *PlayReadyPlayRight
	LicenseType        LicenseType
	ContentKeyLocation KeyFromHeader
	ContentType        ContentType
}

type PlayReadyPlayRight struct {
	DigitalVideoOnlyContentRestriction                 bool
	ImageConstraintForAnalogComponentVideoRestriction  bool
	ImageConstraintForAnalogComputerMonitorRestriction bool
	AllowPassingVideoContentToUnknownOutput            UnknownOutputPassingOption
	ExplicitAnalogTelevisionOutputRestriction          *ExplicitAnalogTelevisionRestriction
}

// ExplicitAnalogTelevisionRestriction carries the CGMS-A configuration data (0..3).
type ExplicitAnalogTelevisionRestriction struct {
	BestEffort        bool
	ConfigurationData int
}

// KeyFromHeader tells the client to read the key id from the content header.
type KeyFromHeader struct{}

// ---------- Widevine ----------

// WidevineConfiguration carries the Widevine policy as a serialized JSON
// document rather than a typed object.
type WidevineConfiguration struct {
	WidevineTemplate string
}

type WidevineTemplate struct {
	AllowedTrackTypes string           `json:"allowed_track_types,omitempty"`
	ContentKeySpecs   []ContentKeySpec `json:"content_key_specs,omitempty"`
	PolicyOverrides   PolicyOverrides  `json:"policy_overrides"`
}

type ContentKeySpec struct {
	TrackType                string            `json:"track_type"`
	SecurityLevel            int               `json:"security_level"`
	RequiredOutputProtection *OutputProtection `json:"required_output_protection,omitempty"`
}

type OutputProtection struct {
	HDCP string `json:"hdcp"`
}

type PolicyOverrides struct {
	CanPlay                 bool  `json:"can_play"`
	CanPersist              bool  `json:"can_persist"`
	CanRenew                bool  `json:"can_renew"`
	RentalDurationSeconds   int64 `json:"rental_duration_seconds,omitempty"`
	PlaybackDurationSeconds int64 `json:"playback_duration_seconds,omitempty"`
	LicenseDurationSeconds  int64 `json:"license_duration_seconds,omitempty"`
}

// ---------- Token restriction ----------

type TokenRestriction struct {
	Issuer                    string
	Audience                  string
	PrimaryVerificationKey    TokenKey
	AlternateVerificationKeys []TokenKey
	RequiredClaims            []TokenClaim
	RestrictionTokenType      TokenType
}

// TokenKey is one verification key registered on a restriction. Exactly one
// of the fields is set.
type TokenKey struct {
	X509RawBody []byte
	Symmetric   []byte
}

type TokenClaim struct {
	ClaimType  string
	ClaimValue string
}

// ContentKeyIdentifierClaim requires the token to name the key being requested.
var ContentKeyIdentifierClaim = TokenClaim{ClaimType: ContentKeyIdentifierClaimType}
