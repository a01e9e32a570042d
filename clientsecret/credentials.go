package clientsecret

import (
	"github.com/axent-pl/drmkit/common"
)

type ClientSecretCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

func (ClientSecretCredentials) Kind() common.Kind { return common.ClientSecret }

var _ common.Credentials = ClientSecretCredentials{}
