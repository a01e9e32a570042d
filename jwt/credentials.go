package jwt

import "github.com/axent-pl/drmkit/common"

type JWTCredentials struct {
	Token string
}

func (JWTCredentials) Kind() common.Kind { return common.JWT }
