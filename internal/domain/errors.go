package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrInvalidToken covers malformed, unknown, expired, and wrong-purpose
	// verification tokens. The cases are deliberately collapsed so responses
	// never reveal whether an account or token exists.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrRateLimited is returned when the sliding-window limiter denies a call.
	ErrRateLimited = errors.New("rate limited")
)
