package common

import "errors"

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrInvalidInput = errors.New("bad input")
var ErrInternal = errors.New("internal error")

// provisioning run failures
var ErrConfigMissing = errors.New("configuration missing")
var ErrAuthentication = errors.New("authentication failure")
var ErrPolicyNameConflict = errors.New("content key policy name conflict")
var ErrLocatorCreation = errors.New("streaming locator creation failed")
var ErrEndpointStartTimeout = errors.New("streaming endpoint start timed out")
var ErrPathNotFound = errors.New("streaming path not found")
