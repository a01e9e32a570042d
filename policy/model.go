package policy

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/mediaservices/armmediaservices/v3"
	"github.com/axent-pl/drmkit/common"
)

// Models converts options to the management API models, which carry the
// @odata.type discriminators when serialized.
func Models(options []Option) ([]*armmediaservices.ContentKeyPolicyOption, error) {
	models := make([]*armmediaservices.ContentKeyPolicyOption, 0, len(options))
	for _, o := range options {
		m, err := o.Model()
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// Model converts the option. An option without a restriction is open.
func (o Option) Model() (*armmediaservices.ContentKeyPolicyOption, error) {
	if o.Configuration == nil {
		return nil, fmt.Errorf("%w: policy option %q has no configuration", common.ErrInvalidInput, o.Name)
	}
	configuration, err := o.Configuration.Model()
	if err != nil {
		return nil, err
	}
	m := &armmediaservices.ContentKeyPolicyOption{Configuration: configuration}
	if o.Name != "" {
		m.Name = to.Ptr(o.Name)
	}
	if o.Restriction == nil {
		m.Restriction = &armmediaservices.ContentKeyPolicyOpenRestriction{}
		return m, nil
	}
	restriction, err := o.Restriction.Model()
	if err != nil {
		return nil, err
	}
	m.Restriction = restriction
	return m, nil
}

func (c PlayReadyConfiguration) Model() (armmediaservices.ContentKeyPolicyConfigurationClassification, error) {
	licenses := make([]*armmediaservices.ContentKeyPolicyPlayReadyLicense, 0, len(c.Licenses))
	for _, l := range c.Licenses {
		license := &armmediaservices.ContentKeyPolicyPlayReadyLicense{
			AllowTestDevices:   to.Ptr(l.AllowTestDevices),
			BeginDate:          l.BeginDate,
			ExpirationDate:     l.ExpirationDate,
			ContentKeyLocation: &armmediaservices.ContentKeyPolicyPlayReadyContentEncryptionKeyFromHeader{},
			ContentType:        to.Ptr(armmediaservices.ContentKeyPolicyPlayReadyContentType(l.ContentType)),
			LicenseType:        to.Ptr(armmediaservices.ContentKeyPolicyPlayReadyLicenseType(l.LicenseType)),
		}
		if r := l.PlayRight; r != nil {
			license.PlayRight = &armmediaservices.ContentKeyPolicyPlayReadyPlayRight{
				DigitalVideoOnlyContentRestriction:                 to.Ptr(r.DigitalVideoOnlyContentRestriction),
				ImageConstraintForAnalogComponentVideoRestriction:  to.Ptr(r.ImageConstraintForAnalogComponentVideoRestriction),
				ImageConstraintForAnalogComputerMonitorRestriction: to.Ptr(r.ImageConstraintForAnalogComputerMonitorRestriction),
				AllowPassingVideoContentToUnknownOutput: to.Ptr(
					armmediaservices.ContentKeyPolicyPlayReadyUnknownOutputPassingOption(r.AllowPassingVideoContentToUnknownOutput)),
			}
			if e := r.ExplicitAnalogTelevisionOutputRestriction; e != nil {
				license.PlayRight.ExplicitAnalogTelevisionOutputRestriction = &armmediaservices.ContentKeyPolicyPlayReadyExplicitAnalogTelevisionRestriction{
					BestEffort:        to.Ptr(e.BestEffort),
					ConfigurationData: to.Ptr(int32(e.ConfigurationData)),
				}
			}
		}
		licenses = append(licenses, license)
	}
	return &armmediaservices.ContentKeyPolicyPlayReadyConfiguration{Licenses: licenses}, nil
}

func (c WidevineConfiguration) Model() (armmediaservices.ContentKeyPolicyConfigurationClassification, error) {
	if c.WidevineTemplate == "" {
		return nil, fmt.Errorf("%w: empty widevine template", common.ErrInvalidInput)
	}
	return &armmediaservices.ContentKeyPolicyWidevineConfiguration{WidevineTemplate: to.Ptr(c.WidevineTemplate)}, nil
}

func (r *TokenRestriction) Model() (*armmediaservices.ContentKeyPolicyTokenRestriction, error) {
	primary, err := r.PrimaryVerificationKey.Model()
	if err != nil {
		return nil, err
	}
	alternates := make([]armmediaservices.ContentKeyPolicyRestrictionTokenKeyClassification, 0, len(r.AlternateVerificationKeys))
	for _, k := range r.AlternateVerificationKeys {
		key, err := k.Model()
		if err != nil {
			return nil, err
		}
		alternates = append(alternates, key)
	}
	claims := make([]*armmediaservices.ContentKeyPolicyTokenClaim, 0, len(r.RequiredClaims))
	for _, c := range r.RequiredClaims {
		claim := &armmediaservices.ContentKeyPolicyTokenClaim{ClaimType: to.Ptr(c.ClaimType)}
		if c.ClaimValue != "" {
			claim.ClaimValue = to.Ptr(c.ClaimValue)
		}
		claims = append(claims, claim)
	}
	return &armmediaservices.ContentKeyPolicyTokenRestriction{
		Issuer:                    to.Ptr(r.Issuer),
		Audience:                  to.Ptr(r.Audience),
		PrimaryVerificationKey:    primary,
		AlternateVerificationKeys: alternates,
		RequiredClaims:            claims,
		RestrictionTokenType:      to.Ptr(armmediaservices.ContentKeyPolicyRestrictionTokenType(r.RestrictionTokenType)),
	}, nil
}

func (k TokenKey) Model() (armmediaservices.ContentKeyPolicyRestrictionTokenKeyClassification, error) {
	switch {
	case k.X509RawBody != nil:
		return &armmediaservices.ContentKeyPolicyX509CertificateTokenKey{RawBody: k.X509RawBody}, nil
	case k.Symmetric != nil:
		return &armmediaservices.ContentKeyPolicySymmetricTokenKey{KeyValue: k.Symmetric}, nil
	}
	return nil, fmt.Errorf("%w: empty token key", common.ErrInvalidInput)
}
