package jwt

import (
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/playtype/account-recovery-service/internal/domain"
)

// hmacStrategy implements JWTStrategy with a process-wide shared secret
type hmacStrategy struct {
	secret []byte
	keyID  string
	config *domain.HMACConfig
}

// NewHMACStrategy creates an HS256 strategy
func NewHMACStrategy(config *domain.HMACConfig) (domain.JWTStrategy, error) {
	if config == nil || len(config.Secret) == 0 {
		return nil, domain.ErrInvalidKeyConfig
	}

	sum := sha256.Sum256(config.Secret)
	return &hmacStrategy{
		secret: config.Secret,
		keyID:  base64.RawURLEncoding.EncodeToString(sum[:8]),
		config: config,
	}, nil
}

// Sign signs a JWT token with the shared secret
func (h *hmacStrategy) Sign(claims *domain.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = h.keyID
	return token.SignedString(h.secret)
}

func (h *hmacStrategy) Method() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}

func (h *hmacStrategy) VerificationKey() interface{} {
	return h.secret
}

func (h *hmacStrategy) GetKeyID() string {
	return h.keyID
}

func (h *hmacStrategy) GetAccessDuration() time.Duration {
	if h.config.AccessDuration > 0 {
		return h.config.AccessDuration
	}
	return domain.DefaultAccessTokenDuration
}

func (h *hmacStrategy) GetRefreshDuration() time.Duration {
	if h.config.RefreshDuration > 0 {
		return h.config.RefreshDuration
	}
	return domain.DefaultRefreshTokenDuration
}
