package clientassertion

import (
	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/sig"
)

// ClientAssertionCredentials authenticate an application with a
// certificate instead of a shared secret.
type ClientAssertionCredentials struct {
	TenantID    string
	ClientID    string
	Certificate *sig.Certificate
}

func (ClientAssertionCredentials) Kind() common.Kind { return common.ClientAssertion }

var _ common.Credentials = ClientAssertionCredentials{}
