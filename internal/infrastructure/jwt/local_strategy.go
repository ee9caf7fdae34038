package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/playtype/account-recovery-service/internal/domain"
	"go.uber.org/zap"
)

// localStrategy implements JWTStrategy using a local RSA key pair
type localStrategy struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	config     *domain.LocalConfig
	logger     *zap.Logger
	keyID      string
}

// NewLocalStrategy creates an RS256 strategy backed by the PEM file at
// config.KeyPath, generating the key when the file does not exist.
func NewLocalStrategy(config *domain.LocalConfig, logger *zap.Logger) (domain.JWTStrategy, error) {
	if config == nil || config.KeyPath == "" {
		return nil, domain.ErrInvalidKeyConfig
	}

	strategy := &localStrategy{
		config: config,
		logger: logger,
	}

	if err := strategy.loadOrGenerateKeyPair(); err != nil {
		return nil, domain.ErrInvalidKeyConfig
	}

	strategy.keyID = generateKeyID(strategy.privateKey)
	return strategy, nil
}

// loadOrGenerateKeyPair loads the key pair from file or generates a new one
func (l *localStrategy) loadOrGenerateKeyPair() error {
	dir := filepath.Dir(l.config.KeyPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return domain.ErrInvalidKeyConfig
	}

	if err := l.loadKeyPair(); err == nil {
		return nil
	}

	l.logger.Info("Generating new signing key", zap.String("path", l.config.KeyPath))
	return l.generateKeyPair()
}

// loadKeyPair loads the key pair from file
func (l *localStrategy) loadKeyPair() error {
	privateKeyPEM, err := os.ReadFile(l.config.KeyPath)
	if err != nil {
		return domain.ErrInvalidKeyConfig
	}

	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return domain.ErrInvalidKeyConfig
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return domain.ErrInvalidKeyConfig
	}

	l.privateKey = privateKey
	l.publicKey = &privateKey.PublicKey
	return nil
}

// generateKeyPair generates a new RSA key pair and persists the private half
func (l *localStrategy) generateKeyPair() error {
	privateKey, err := rsa.GenerateKey(rand.Reader, domain.RSAKeySize)
	if err != nil {
		return domain.ErrInvalidKeyConfig
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	if err := os.WriteFile(l.config.KeyPath, privateKeyPEM, 0600); err != nil {
		return domain.ErrInvalidKeyConfig
	}

	l.privateKey = privateKey
	l.publicKey = &privateKey.PublicKey
	return nil
}

// Sign signs a JWT token using the local private key
func (l *localStrategy) Sign(claims *domain.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = l.keyID

	return token.SignedString(l.privateKey)
}

func (l *localStrategy) Method() jwt.SigningMethod {
	return jwt.SigningMethodRS256
}

// VerificationKey returns the public key
func (l *localStrategy) VerificationKey() interface{} {
	return l.publicKey
}

// GetKeyID returns the current key ID
func (l *localStrategy) GetKeyID() string {
	return l.keyID
}

// generateKeyID derives a stable key ID from the public key components
func generateKeyID(key *rsa.PrivateKey) string {
	modulus := key.N.Bytes()
	exponent := []byte{byte(key.E)}

	data := append(modulus, exponent...)
	hash := sha256.Sum256(data)

	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GetAccessDuration returns the access token duration
func (l *localStrategy) GetAccessDuration() time.Duration {
	if l.config.AccessDuration > 0 {
		return l.config.AccessDuration
	}
	return domain.DefaultAccessTokenDuration
}

// GetRefreshDuration returns the refresh token duration
func (l *localStrategy) GetRefreshDuration() time.Duration {
	if l.config.RefreshDuration > 0 {
		return l.config.RefreshDuration
	}
	return domain.DefaultRefreshTokenDuration
}
