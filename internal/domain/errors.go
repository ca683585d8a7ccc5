package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on unique key conflicts.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput wraps request validation failures raised by services.
	ErrInvalidInput = errors.New("invalid input")

	ErrVariantRequired   = errors.New("variant selection required")
	ErrVariantNotAllowed = errors.New("product has no variants")
	ErrNoPrice           = errors.New("product has no price")
	ErrUnavailable       = errors.New("product unavailable")
)
