// Package config loads the account and run settings: built-in defaults,
// then appsettings.json (or the file given with --config), then
// environment variables named like the keys.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/policy"
	"github.com/spf13/viper"
)

// Configuration keys, also the environment variable names.
const (
	KeySubscriptionID        = "SubscriptionId"
	KeyResourceGroup         = "ResourceGroup"
	KeyAccountName           = "AccountName"
	KeyAadTenantID           = "AadTenantId"
	KeyAadTenantDomain       = "AadTenantDomain"
	KeyAadURL                = "AadUrl"
	KeyAadClientID           = "AadClientId"
	KeyAadSecret             = "AadSecret"
	KeyArmAadAudience        = "ArmAadAudience"
	KeyAadEndpoint           = "AadEndpoint"
	KeyArmEndpoint           = "ArmEndpoint"
	KeyLocation              = "Location"
	KeySymmetricKey          = "SymmetricKey"
	KeyCertificatePath       = "CertificatePath"
	KeyCertificatePassword   = "CertificatePassword"
	KeyTokenIssuer           = "TokenIssuer"
	KeyTokenAudience         = "TokenAudience"
	KeyTokenType             = "TokenType"
	KeyTokenLifetime         = "TokenLifetime"
	KeyAssetName             = "AssetName"
	KeyStreamingPolicyName   = "StreamingPolicyName"
	KeyStreamingEndpointName = "StreamingEndpointName"
	KeyPolicyNamePrefix      = "PolicyNamePrefix"
	KeyPlatform              = "Platform"
	KeyEndpointStartTimeout  = "EndpointStartTimeout"
	KeyEndpointPollInterval  = "EndpointPollInterval"
	KeyRequirePlaybackURL    = "RequirePlaybackURL"
	KeyLogLevel              = "LogLevel"
)

var keys = []string{
	KeySubscriptionID, KeyResourceGroup, KeyAccountName, KeyAadTenantID, KeyAadTenantDomain,
	KeyAadURL, KeyAadClientID, KeyAadSecret, KeyArmAadAudience, KeyAadEndpoint, KeyArmEndpoint,
	KeyLocation, KeySymmetricKey, KeyCertificatePath, KeyCertificatePassword, KeyTokenIssuer,
	KeyTokenAudience, KeyTokenType, KeyTokenLifetime, KeyAssetName, KeyStreamingPolicyName,
	KeyStreamingEndpointName, KeyPolicyNamePrefix, KeyPlatform,
	KeyEndpointStartTimeout, KeyEndpointPollInterval, KeyRequirePlaybackURL, KeyLogLevel,
}

const (
	PlatformARM    = "arm"
	PlatformMemory = "memory"

	DefaultFileName            = "appsettings"
	DefaultStreamingPolicyName = "Predefined_MultiDrmCencStreaming"
)

// AccountConfig is read once at startup and not modified afterwards.
type AccountConfig struct {
	SubscriptionID  string
	ResourceGroup   string
	AccountName     string
	AadTenantID     string
	AadTenantDomain string
	AadURL          string
	AadClientID     string
	AadSecret       string
	ArmAadAudience  string
	AadEndpoint     string
	ArmEndpoint     string
	Location        string
	SymmetricKey    string

	CertificatePath     string
	CertificatePassword string

	TokenIssuer   string
	TokenAudience string
	TokenType     policy.TokenType
	TokenLifetime time.Duration

	AssetName             string
	StreamingPolicyName   string
	StreamingEndpointName string
	PolicyNamePrefix      string

	Platform             string
	EndpointStartTimeout time.Duration
	EndpointPollInterval time.Duration
	RequirePlaybackURL   bool
	LogLevel             string
}

// New returns a viper instance with defaults and environment bindings in
// place. Environment variables match the key names exactly, or in upper case.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyTokenIssuer, "iss")
	v.SetDefault(KeyTokenAudience, "aud")
	v.SetDefault(KeyTokenType, string(policy.TokenTypeJWT))
	v.SetDefault(KeyTokenLifetime, time.Hour)
	v.SetDefault(KeyStreamingPolicyName, DefaultStreamingPolicyName)
	v.SetDefault(KeyStreamingEndpointName, "default")
	v.SetDefault(KeyPolicyNamePrefix, "drm-policy")
	v.SetDefault(KeyPlatform, PlatformARM)
	v.SetDefault(KeyAadEndpoint, "https://login.microsoftonline.com")
	v.SetDefault(KeyArmEndpoint, "https://management.azure.com/")
	v.SetDefault(KeyArmAadAudience, "https://management.core.windows.net/")
	v.SetDefault(KeyEndpointStartTimeout, 5*time.Minute)
	v.SetDefault(KeyEndpointPollInterval, 2*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	for _, key := range keys {
		_ = v.BindEnv(key, key, strings.ToUpper(key))
	}
	return v
}

// ReadFile merges the given file, or appsettings.{json,yaml} from the
// working directory when path is empty. Only an explicit path must exist.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultFileName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("%w: could not read config: %v", common.ErrInvalidInput, err)
	}
	return nil
}

func Load(v *viper.Viper) (AccountConfig, error) {
	cfg := AccountConfig{
		SubscriptionID:        v.GetString(KeySubscriptionID),
		ResourceGroup:         v.GetString(KeyResourceGroup),
		AccountName:           v.GetString(KeyAccountName),
		AadTenantID:           v.GetString(KeyAadTenantID),
		AadTenantDomain:       v.GetString(KeyAadTenantDomain),
		AadURL:                v.GetString(KeyAadURL),
		AadClientID:           v.GetString(KeyAadClientID),
		AadSecret:             v.GetString(KeyAadSecret),
		ArmAadAudience:        v.GetString(KeyArmAadAudience),
		AadEndpoint:           v.GetString(KeyAadEndpoint),
		ArmEndpoint:           v.GetString(KeyArmEndpoint),
		Location:              v.GetString(KeyLocation),
		SymmetricKey:          v.GetString(KeySymmetricKey),
		CertificatePath:       v.GetString(KeyCertificatePath),
		CertificatePassword:   v.GetString(KeyCertificatePassword),
		TokenIssuer:           v.GetString(KeyTokenIssuer),
		TokenAudience:         v.GetString(KeyTokenAudience),
		TokenType:             policy.TokenType(v.GetString(KeyTokenType)),
		TokenLifetime:         v.GetDuration(KeyTokenLifetime),
		AssetName:             v.GetString(KeyAssetName),
		StreamingPolicyName:   v.GetString(KeyStreamingPolicyName),
		StreamingEndpointName: v.GetString(KeyStreamingEndpointName),
		PolicyNamePrefix:      v.GetString(KeyPolicyNamePrefix),
		Platform:              strings.ToLower(v.GetString(KeyPlatform)),
		EndpointStartTimeout:  v.GetDuration(KeyEndpointStartTimeout),
		EndpointPollInterval:  v.GetDuration(KeyEndpointPollInterval),
		RequirePlaybackURL:    v.GetBool(KeyRequirePlaybackURL),
		LogLevel:              v.GetString(KeyLogLevel),
	}
	switch cfg.TokenType {
	case policy.TokenTypeJWT, policy.TokenTypeSWT:
	default:
		return AccountConfig{}, fmt.Errorf("%w: %s must be %s or %s", common.ErrInvalidInput, KeyTokenType, policy.TokenTypeJWT, policy.TokenTypeSWT)
	}
	switch cfg.Platform {
	case PlatformARM, PlatformMemory:
	default:
		return AccountConfig{}, fmt.Errorf("%w: unknown %s %q", common.ErrInvalidInput, KeyPlatform, cfg.Platform)
	}
	return cfg, nil
}

// UsesCertificateAuth reports whether the application authenticates with
// a client assertion, which happens when no AadSecret is configured.
func (c AccountConfig) UsesCertificateAuth() bool {
	return c.AadSecret == "" && c.CertificatePath != ""
}

func (c AccountConfig) Authority() common.Authority {
	return common.Authority{AadEndpoint: c.AadEndpoint, Audience: c.ArmAadAudience}
}

// signingKeys lists what token issuance needs.
func (c AccountConfig) signingKeys() map[string]string {
	required := map[string]string{
		KeySymmetricKey:  c.SymmetricKey,
		KeyTokenIssuer:   c.TokenIssuer,
		KeyTokenAudience: c.TokenAudience,
	}
	if c.TokenType == policy.TokenTypeJWT {
		required[KeyCertificatePath] = c.CertificatePath
	}
	return required
}

// ValidateSigning checks only the keys needed to issue and verify tokens.
func (c AccountConfig) ValidateSigning() error {
	return missingKeys(c.signingKeys())
}

// Validate reports every missing key at once. The in-memory platform
// needs only token signing material.
func (c AccountConfig) Validate() error {
	required := c.signingKeys()
	required[KeyAssetName] = c.AssetName
	if c.Platform == PlatformARM {
		required[KeySubscriptionID] = c.SubscriptionID
		required[KeyResourceGroup] = c.ResourceGroup
		required[KeyAccountName] = c.AccountName
		required[KeyAadTenantID] = c.AadTenantID
		required[KeyAadClientID] = c.AadClientID
		required[KeyArmAadAudience] = c.ArmAadAudience
		required[KeyAadEndpoint] = c.AadEndpoint
		required[KeyArmEndpoint] = c.ArmEndpoint
		if !c.UsesCertificateAuth() {
			required[KeyAadSecret] = c.AadSecret
		}
	}

	if err := missingKeys(required); err != nil {
		return err
	}
	if c.EndpointStartTimeout <= 0 || c.EndpointPollInterval <= 0 {
		return fmt.Errorf("%w: %s and %s must be positive", common.ErrInvalidInput, KeyEndpointStartTimeout, KeyEndpointPollInterval)
	}
	return nil
}

func missingKeys(required map[string]string) error {
	var missing []string
	for _, key := range keys {
		if value, ok := required[key]; ok && strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", common.ErrConfigMissing, strings.Join(missing, ", "))
	}
	return nil
}
