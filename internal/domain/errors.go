package domain

import "errors"

// Sentinel errors shared across services and repositories. Handlers map
// these onto HTTP status codes; everything else is a 500.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailTaken             = errors.New("email already registered")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInsufficientPoints     = errors.New("insufficient points")
	ErrOutOfStock             = errors.New("reward out of stock")
	ErrValidation             = errors.New("validation failed")
)
