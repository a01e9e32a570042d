package clientsecret

import (
	"fmt"

	"github.com/axent-pl/drmkit/common"
	"github.com/google/uuid"
)

func NewClientSecretCredentials(tenantID, clientID, clientSecret string) (ClientSecretCredentials, error) {
	creds := ClientSecretCredentials{
		TenantID:     tenantID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
	if creds.TenantID == "" {
		return ClientSecretCredentials{}, fmt.Errorf("%w: missing tenant", common.ErrInvalidInput)
	}
	if _, err := uuid.Parse(creds.ClientID); err != nil {
		return ClientSecretCredentials{}, fmt.Errorf("%w: client_id is not a GUID", common.ErrInvalidInput)
	}
	if creds.ClientSecret == "" {
		return ClientSecretCredentials{}, fmt.Errorf("%w: missing client_secret", common.ErrInvalidInput)
	}

	return creds, nil
}
