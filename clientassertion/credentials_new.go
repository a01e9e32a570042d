package clientassertion

import (
	"fmt"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/sig"
	"github.com/google/uuid"
)

func NewClientAssertionCredentials(tenantID, clientID string, cert *sig.Certificate) (ClientAssertionCredentials, error) {
	if tenantID == "" {
		return ClientAssertionCredentials{}, fmt.Errorf("%w: missing tenant", common.ErrInvalidInput)
	}
	if _, err := uuid.Parse(clientID); err != nil {
		return ClientAssertionCredentials{}, fmt.Errorf("%w: client_id is not a GUID", common.ErrInvalidInput)
	}
	if cert == nil || cert.Leaf == nil || cert.PrivateKey == nil {
		return ClientAssertionCredentials{}, fmt.Errorf("%w: missing certificate", common.ErrInvalidInput)
	}

	return ClientAssertionCredentials{TenantID: tenantID, ClientID: clientID, Certificate: cert}, nil
}
