package domain

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTokenDuration is used when no access duration is configured
	DefaultAccessTokenDuration = 15 * time.Minute
	// DefaultRefreshTokenDuration is used when no refresh duration is configured
	DefaultRefreshTokenDuration = 24 * time.Hour
	// RSAKeySize is the size of generated RSA signing keys
	RSAKeySize = 2048
)

// TokenKind distinguishes access from refresh tokens in claims and blacklist keys.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims carried by both token kinds.
type Claims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// SessionTokenService issues, validates and revokes session credentials.
type SessionTokenService interface {
	IssuePair(ctx context.Context, subject string) (*TokenPair, error)
	ValidateAccess(ctx context.Context, token string) (*Claims, error)
	ValidateRefresh(ctx context.Context, token string) (*Claims, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	BlacklistAccess(ctx context.Context, token string) error
	BlacklistRefresh(ctx context.Context, token string) error
	IsAccessBlacklisted(ctx context.Context, token string) (bool, error)
}
