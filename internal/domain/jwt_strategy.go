package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTStrategy defines the interface for JWT signing strategies
type JWTStrategy interface {
	// Sign signs a JWT token with the strategy's key
	Sign(claims *Claims) (string, error)
	// Method returns the signing method tokens must carry
	Method() jwt.SigningMethod
	// VerificationKey returns the key used to check signatures
	VerificationKey() interface{}
	// GetKeyID returns the current key ID
	GetKeyID() string
	// GetAccessDuration returns the access token duration
	GetAccessDuration() time.Duration
	// GetRefreshDuration returns the refresh token duration
	GetRefreshDuration() time.Duration
}

// HMACConfig holds the configuration for the shared-secret strategy
type HMACConfig struct {
	Secret          []byte
	AccessDuration  time.Duration
	RefreshDuration time.Duration
}

// LocalConfig holds the configuration for local key storage
type LocalConfig struct {
	KeyPath         string
	AccessDuration  time.Duration
	RefreshDuration time.Duration
}
