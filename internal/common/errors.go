// Package common defines shared constants and sentinel errors used across
// GemDeck components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrorNotFound = errors.New("not found")

	// Request-level errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorBadInput     = errors.New("bad input")

	// Human verification (Turnstile) did not pass.
	ErrorVerification = errors.New("verification failed")

	// Auth errors (invalid or malformed token, undecryptable path token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
