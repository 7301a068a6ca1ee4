package common

import "errors"

// Sentinel errors shared across layers. Match them with errors.Is.
var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorInvalidID     = errors.New("invalid identifier")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Returned alike for a missing, mismatched or expired reset token.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// Rate limiting.
	ErrTooManyRequests = errors.New("too many requests")
)
