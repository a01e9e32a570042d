package jwt

import (
	"fmt"
	"strings"

	"github.com/axent-pl/drmkit/common"
)

// NewJWTCredentialsFromHeader accepts either a bare compact token or an
// Authorization header value ("Bearer <token>" or the player form "Bearer=<token>").
func NewJWTCredentialsFromHeader(value string) (JWTCredentials, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return JWTCredentials{}, fmt.Errorf("%w: missing token", common.ErrInvalidInput)
	}

	if scheme, rest, ok := strings.Cut(value, "="); ok && strings.EqualFold(scheme, "Bearer") {
		value = rest
	} else if parts := strings.Fields(value); len(parts) > 1 {
		if len(parts) != 2 {
			return JWTCredentials{}, fmt.Errorf("%w: invalid Authorization header", common.ErrInvalidInput)
		}
		if !strings.EqualFold(parts[0], "Bearer") {
			return JWTCredentials{}, fmt.Errorf("%w: invalid Authorization scheme", common.ErrInvalidInput)
		}
		value = parts[1]
	}

	if strings.Count(value, ".") != 2 {
		return JWTCredentials{}, fmt.Errorf("%w: token is not a compact jwt", common.ErrInvalidInput)
	}
	return JWTCredentials{Token: value}, nil
}
