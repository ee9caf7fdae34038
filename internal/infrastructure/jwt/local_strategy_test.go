package jwt

import (
	"context"
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/playtype/account-recovery-service/internal/domain"
)

func TestLocalStrategy(t *testing.T) {
	tempDir := t.TempDir()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	config := &domain.LocalConfig{
		KeyPath:         filepath.Join(tempDir, "keys", "signing.pem"),
		AccessDuration:  domain.DefaultAccessTokenDuration,
		RefreshDuration: domain.DefaultRefreshTokenDuration,
	}

	t.Run("new strategy", func(t *testing.T) {
		strategy, err := NewLocalStrategy(config, logger)
		require.NoError(t, err)
		assert.NotNil(t, strategy)
		assert.IsType(t, &rsa.PublicKey{}, strategy.VerificationKey())
		assert.NotEmpty(t, strategy.GetKeyID())
		assert.Equal(t, jwt.SigningMethodRS256, strategy.Method())

		_, err = os.Stat(config.KeyPath)
		assert.NoError(t, err)
	})

	t.Run("key is reused across restarts", func(t *testing.T) {
		first, err := NewLocalStrategy(config, logger)
		require.NoError(t, err)
		second, err := NewLocalStrategy(config, logger)
		require.NoError(t, err)

		assert.Equal(t, first.GetKeyID(), second.GetKeyID())
	})

	t.Run("sign and validate token", func(t *testing.T) {
		strategy, err := NewLocalStrategy(config, logger)
		require.NoError(t, err)

		userID := ulid.Make()
		claims := &domain.Claims{
			Kind: domain.TokenKindAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ID:        ulid.Make().String(),
			},
		}

		token, err := strategy.Sign(claims)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		parsedToken, err := jwt.ParseWithClaims(token, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
			return strategy.VerificationKey(), nil
		})
		require.NoError(t, err)
		assert.True(t, parsedToken.Valid)
		assert.Equal(t, strategy.GetKeyID(), parsedToken.Header["kid"])

		parsedClaims, ok := parsedToken.Claims.(*domain.Claims)
		require.True(t, ok)
		assert.Equal(t, userID.String(), parsedClaims.Subject)
		assert.Equal(t, domain.TokenKindAccess, parsedClaims.Kind)
	})

	t.Run("works behind the token service", func(t *testing.T) {
		strategy, err := NewLocalStrategy(config, logger)
		require.NoError(t, err)

		service, _, _ := getTokenService(t)
		service.strategy = strategy

		pair, err := service.IssuePair(context.Background(), "subject")
		require.NoError(t, err)
		claims, err := service.ValidateRefresh(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "subject", claims.Subject)
	})

	t.Run("corrupt key file", func(t *testing.T) {
		path := filepath.Join(tempDir, "corrupt.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a key"), 0600))

		strategy, err := NewLocalStrategy(&domain.LocalConfig{KeyPath: path}, logger)
		require.NoError(t, err)
		assert.NotEmpty(t, strategy.GetKeyID())
	})

	t.Run("missing key path", func(t *testing.T) {
		_, err := NewLocalStrategy(&domain.LocalConfig{}, logger)
		assert.ErrorIs(t, err, domain.ErrInvalidKeyConfig)
	})

	t.Run("token durations", func(t *testing.T) {
		strategy, err := NewLocalStrategy(&domain.LocalConfig{KeyPath: config.KeyPath}, logger)
		require.NoError(t, err)

		assert.Equal(t, domain.DefaultAccessTokenDuration, strategy.GetAccessDuration())
		assert.Equal(t, domain.DefaultRefreshTokenDuration, strategy.GetRefreshDuration())
	})
}

func TestHMACStrategy(t *testing.T) {
	t.Run("empty secret", func(t *testing.T) {
		_, err := NewHMACStrategy(&domain.HMACConfig{})
		assert.ErrorIs(t, err, domain.ErrInvalidKeyConfig)
	})

	t.Run("key id is stable per secret", func(t *testing.T) {
		a, err := NewHMACStrategy(&domain.HMACConfig{Secret: []byte("one")})
		require.NoError(t, err)
		b, err := NewHMACStrategy(&domain.HMACConfig{Secret: []byte("one")})
		require.NoError(t, err)
		c, err := NewHMACStrategy(&domain.HMACConfig{Secret: []byte("two")})
		require.NoError(t, err)

		assert.Equal(t, a.GetKeyID(), b.GetKeyID())
		assert.NotEqual(t, a.GetKeyID(), c.GetKeyID())
		assert.Equal(t, jwt.SigningMethodHS256, a.Method())
	})

	t.Run("default durations", func(t *testing.T) {
		s, err := NewHMACStrategy(&domain.HMACConfig{Secret: []byte("secret")})
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultAccessTokenDuration, s.GetAccessDuration())
		assert.Equal(t, domain.DefaultRefreshTokenDuration, s.GetRefreshDuration())
	})
}
