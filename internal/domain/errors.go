package domain

import "errors"

var (
	// ErrInfrastructureUnavailable is returned when the shared cache or another
	// backing service cannot be reached. Callers must deny the action.
	ErrInfrastructureUnavailable = errors.New("infrastructure unavailable")

	// ErrInvalidTTL is returned when a cache write is attempted with a non-positive TTL
	ErrInvalidTTL = errors.New("ttl must be positive")

	// ErrInvalidPeriod is returned for an unknown rate limit period
	ErrInvalidPeriod = errors.New("invalid rate limit period")

	// ErrInvalidPurpose is returned for an unknown verification purpose
	ErrInvalidPurpose = errors.New("invalid verification purpose")

	// ErrInvalidVerificationConfig is returned when verification TTLs or lengths are not positive
	ErrInvalidVerificationConfig = errors.New("invalid verification configuration")

	// ErrTokenSpaceExhausted is returned when no unique token could be reserved
	ErrTokenSpaceExhausted = errors.New("unable to reserve a unique token")

	// ErrAccountNotFound is returned when no active account matches a lookup
	ErrAccountNotFound = errors.New("account not found")
)

// Token errors
var (
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenBlacklisted = errors.New("token blacklisted")
	ErrTokenWrongKind   = errors.New("unexpected token kind")
	ErrTokenGeneration  = errors.New("failed to generate token")
	ErrInvalidKeyConfig = errors.New("invalid key configuration")
)
