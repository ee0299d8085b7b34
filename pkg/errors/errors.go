package gql_errors

import (
	"errors"
)

// Common errors
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConnection         = errors.New("store not connected")
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrBrokerClosed       = errors.New("event broker closed")
)
