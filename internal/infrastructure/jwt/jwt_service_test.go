package jwt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/playtype/account-recovery-service/internal/infrastructure/secretstore"
)

type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Now()} }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func getTokenServiceWithDuration(t *testing.T, accessDuration, refreshDuration time.Duration) (*TokenService, *miniredis.Miniredis, *clock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	strategy, err := NewHMACStrategy(&domain.HMACConfig{
		Secret:          []byte("test-secret-with-enough-entropy-0123456789"),
		AccessDuration:  accessDuration,
		RefreshDuration: refreshDuration,
	})
	require.NoError(t, err)

	c := newClock()
	service := NewTokenService(strategy, NewRedisBlacklist(secretstore.New(client, "")), zap.NewNop())
	service.now = c.now
	return service, mr, c
}

func getTokenService(t *testing.T) (*TokenService, *miniredis.Miniredis, *clock) {
	return getTokenServiceWithDuration(t, 15*time.Minute, 24*time.Hour)
}

func TestTokenService_IssuePair(t *testing.T) {
	service, _, _ := getTokenService(t)
	ctx := context.Background()

	t.Run("valid token pair generation", func(t *testing.T) {
		subject := ulid.Make().String()

		pair, err := service.IssuePair(ctx, subject)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)

		claims, err := service.ValidateAccess(ctx, pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, subject, claims.Subject)
		assert.Equal(t, domain.TokenKindAccess, claims.Kind)
		_, err = ulid.Parse(claims.ID)
		assert.NoError(t, err)

		refreshClaims, err := service.ValidateRefresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, subject, refreshClaims.Subject)
		assert.Equal(t, domain.TokenKindRefresh, refreshClaims.Kind)
		assert.NotEqual(t, claims.ID, refreshClaims.ID)
	})

	t.Run("durations come from the strategy", func(t *testing.T) {
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)

		access, err := service.ValidateAccess(ctx, pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, access.ExpiresAt.Sub(access.IssuedAt.Time))

		refresh, err := service.ValidateRefresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, 24*time.Hour, refresh.ExpiresAt.Sub(refresh.IssuedAt.Time))
	})

	t.Run("empty subject", func(t *testing.T) {
		_, err := service.IssuePair(ctx, "")
		assert.ErrorIs(t, err, domain.ErrTokenGeneration)
	})
}

func TestTokenService_Validate(t *testing.T) {
	service, _, c := getTokenService(t)
	ctx := context.Background()

	t.Run("wrong kind", func(t *testing.T) {
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)

		_, err = service.ValidateRefresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, domain.ErrTokenWrongKind)
		_, err = service.ValidateAccess(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrTokenWrongKind)
	})

	t.Run("invalid token format", func(t *testing.T) {
		invalidTokens := []string{
			"",
			"invalid.token.here",
			"not.even.a.jwt",
			"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6IkpvaG4gRG9lIiwiaWF0IjoxNTE2MjM5MDIyfQ",
		}

		for _, token := range invalidTokens {
			_, err := service.ValidateAccess(ctx, token)
			assert.ErrorIs(t, err, domain.ErrTokenInvalid, token)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)

		parts := strings.Split(pair.AccessToken, ".")
		require.Len(t, parts, 3)
		other, err := service.IssuePair(ctx, "someone-else")
		require.NoError(t, err)
		parts[1] = strings.Split(other.AccessToken, ".")[1]

		_, err = service.ValidateAccess(ctx, strings.Join(parts, "."))
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("token with invalid signature", func(t *testing.T) {
		otherService, _, _ := getTokenService(t)
		otherStrategy, err := NewHMACStrategy(&domain.HMACConfig{Secret: []byte("a-different-secret")})
		require.NoError(t, err)
		otherService.strategy = otherStrategy

		pair, err := otherService.IssuePair(ctx, "subject")
		require.NoError(t, err)

		_, err = service.ValidateAccess(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("algorithm none is rejected", func(t *testing.T) {
		claims := &domain.Claims{
			Kind: domain.TokenKindAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "subject",
				ID:        ulid.Make().String(),
				IssuedAt:  jwt.NewNumericDate(c.now()),
				ExpiresAt: jwt.NewNumericDate(c.now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.ValidateAccess(ctx, token)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := &domain.Claims{
			Kind: domain.TokenKindAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:  "subject",
				ID:       ulid.Make().String(),
				IssuedAt: jwt.NewNumericDate(c.now()),
			},
		}
		token, err := service.strategy.Sign(claims)
		require.NoError(t, err)

		_, err = service.ValidateAccess(ctx, token)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)

		c.advance(16 * time.Minute)
		t.Cleanup(func() { c.advance(-16 * time.Minute) })

		_, err = service.ValidateAccess(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, domain.ErrTokenExpired)

		_, err = service.ValidateRefresh(ctx, pair.RefreshToken)
		assert.NoError(t, err)
	})
}

func TestTokenService_RefreshAccessToken(t *testing.T) {
	service, _, c := getTokenService(t)
	ctx := context.Background()

	pair, err := service.IssuePair(ctx, "subject")
	require.NoError(t, err)

	t.Run("refresh succeeds repeatedly", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			c.advance(time.Second)
			access, err := service.RefreshAccessToken(ctx, pair.RefreshToken)
			require.NoError(t, err)

			claims, err := service.ValidateAccess(ctx, access)
			require.NoError(t, err)
			assert.Equal(t, "subject", claims.Subject)
		}
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, err := service.RefreshAccessToken(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, domain.ErrTokenWrongKind)
	})

	t.Run("blacklisted refresh token", func(t *testing.T) {
		require.NoError(t, service.BlacklistRefresh(ctx, pair.RefreshToken))

		_, err := service.RefreshAccessToken(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrTokenBlacklisted)
	})
}

func TestTokenService_Blacklist(t *testing.T) {
	ctx := context.Background()

	t.Run("entry ttl never exceeds token lifetime", func(t *testing.T) {
		service, mr, c := getTokenServiceWithDuration(t, 10*time.Minute, time.Hour)
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)
		claims, err := service.ValidateAccess(ctx, pair.AccessToken)
		require.NoError(t, err)

		c.advance(4 * time.Minute)
		require.NoError(t, service.BlacklistAccess(ctx, pair.AccessToken))

		key := "blacklist:access:" + claims.ID
		require.True(t, mr.Exists(key))
		ttl := mr.TTL(key)
		assert.LessOrEqual(t, ttl, 6*time.Minute)
		assert.Greater(t, ttl, 5*time.Minute)

		blacklisted, err := service.IsAccessBlacklisted(ctx, pair.AccessToken)
		require.NoError(t, err)
		assert.True(t, blacklisted)

		_, err = service.ValidateAccess(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, domain.ErrTokenBlacklisted)

		mr.FastForward(6 * time.Minute)
		assert.False(t, mr.Exists(key))
	})

	t.Run("expired token is a no-op", func(t *testing.T) {
		service, mr, c := getTokenServiceWithDuration(t, time.Minute, time.Hour)
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)

		c.advance(2 * time.Minute)
		require.NoError(t, service.BlacklistAccess(ctx, pair.AccessToken))
		assert.Empty(t, mr.Keys())
	})

	t.Run("kinds are kept apart", func(t *testing.T) {
		service, mr, _ := getTokenService(t)
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)

		require.NoError(t, service.BlacklistRefresh(ctx, pair.RefreshToken))
		require.Len(t, mr.Keys(), 1)
		assert.True(t, strings.HasPrefix(mr.Keys()[0], "blacklist:refresh:"))

		blacklisted, err := service.IsAccessBlacklisted(ctx, pair.AccessToken)
		require.NoError(t, err)
		assert.False(t, blacklisted)
	})

	t.Run("blacklisting with the wrong kind fails", func(t *testing.T) {
		service, mr, _ := getTokenService(t)
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)

		assert.ErrorIs(t, service.BlacklistAccess(ctx, pair.RefreshToken), domain.ErrTokenWrongKind)
		assert.Empty(t, mr.Keys())
	})

	t.Run("malformed token fails closed", func(t *testing.T) {
		service, _, _ := getTokenService(t)

		blacklisted, err := service.IsAccessBlacklisted(ctx, "garbage")
		assert.Error(t, err)
		assert.False(t, blacklisted)
	})

	t.Run("expired token reports expiry rather than revocation", func(t *testing.T) {
		service, _, c := getTokenServiceWithDuration(t, time.Minute, time.Hour)
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)
		require.NoError(t, service.BlacklistAccess(ctx, pair.AccessToken))

		c.advance(2 * time.Minute)
		_, err = service.IsAccessBlacklisted(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, domain.ErrTokenExpired)
	})

	t.Run("cache unavailable", func(t *testing.T) {
		service, mr, _ := getTokenService(t)
		pair, err := service.IssuePair(ctx, "subject")
		require.NoError(t, err)

		mr.Close()

		_, err = service.ValidateAccess(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, domain.ErrInfrastructureUnavailable)

		err = service.BlacklistRefresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrInfrastructureUnavailable)
	})
}
