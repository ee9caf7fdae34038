package application

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/playtype/account-recovery-service/internal/infrastructure/secretstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *secretstore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, secretstore.New(client, "")
}

func testVerificationConfig() VerificationConfig {
	return VerificationConfig{
		CodeLength:       6,
		CodeTTL:          5 * time.Minute,
		FlagTTL:          10 * time.Minute,
		TokenTTL:         10 * time.Minute,
		TokenBytes:       32,
		TokenMaxAttempts: 5,
		MaxCodeFailures:  5,
	}
}

func newTestVerification(t *testing.T, opts ...VerificationOption) (*miniredis.Miniredis, *VerificationService) {
	t.Helper()
	mr, store := newTestStore(t)
	svc, err := NewVerificationService(store, testVerificationConfig(), zap.NewNop(), opts...)
	require.NoError(t, err)
	return mr, svc
}

func TestNewVerificationService_RejectsNonPositiveValues(t *testing.T) {
	_, store := newTestStore(t)

	tests := []struct {
		name   string
		mutate func(*VerificationConfig)
	}{
		{name: "zero code ttl", mutate: func(c *VerificationConfig) { c.CodeTTL = 0 }},
		{name: "negative flag ttl", mutate: func(c *VerificationConfig) { c.FlagTTL = -time.Second }},
		{name: "zero token ttl", mutate: func(c *VerificationConfig) { c.TokenTTL = 0 }},
		{name: "zero code length", mutate: func(c *VerificationConfig) { c.CodeLength = 0 }},
		{name: "zero attempts", mutate: func(c *VerificationConfig) { c.TokenMaxAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testVerificationConfig()
			tt.mutate(&cfg)
			_, err := NewVerificationService(store, cfg, zap.NewNop())
			assert.ErrorIs(t, err, domain.ErrInvalidVerificationConfig)
		})
	}
}

func TestVerificationService_GenerateCode(t *testing.T) {
	mr, svc := newTestVerification(t)
	ctx := context.Background()

	code, err := svc.GenerateCode(ctx, domain.PurposePasswordReset, "01012345678")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^\d{6}$`, code)

	stored, err := mr.Get("verify:sms:password_reset:01012345678")
	require.NoError(t, err)
	assert.Equal(t, code, stored)
	assert.Equal(t, 5*time.Minute, mr.TTL("verify:sms:password_reset:01012345678"))

	remaining, err := svc.RemainingTTL(ctx, domain.PurposePasswordReset, "01012345678")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, remaining)
}

func TestVerificationService_ReissueInvalidatesPreviousCode(t *testing.T) {
	mr, svc := newTestVerification(t)
	ctx := context.Background()
	phone := "01012345678"

	require.NoError(t, mr.Set("verify:sms:find_account:"+phone, "111111"))
	second, err := svc.GenerateCode(ctx, domain.PurposeFindAccount, phone)
	require.NoError(t, err)
	if second == "111111" {
		t.Skip("random code matched the seeded one")
	}

	ok, err := svc.VerifyCode(ctx, domain.PurposeFindAccount, phone, "111111", true)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyCode(ctx, domain.PurposeFindAccount, phone, second, true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerificationService_VerifyCodeIsOneTime(t *testing.T) {
	_, svc := newTestVerification(t)
	ctx := context.Background()

	code, err := svc.GenerateCode(ctx, domain.PurposePasswordReset, "01012345678")
	require.NoError(t, err)

	ok, err := svc.VerifyCode(ctx, domain.PurposePasswordReset, "01012345678", code, true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyCode(ctx, domain.PurposePasswordReset, "01012345678", code, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

// beforeCommand runs fn ahead of every command the client sends
type beforeCommand func(cmd redis.Cmder)

func (h beforeCommand) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h beforeCommand) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h(cmd)
		return next(ctx, cmd)
	}
}

func (h beforeCommand) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestVerificationService_ConsumeKeepsReissuedCode(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	const key = "verify:sms:password_reset:01012345678"
	reissued := "222222"
	var once sync.Once
	// a new code lands between the read and the delete
	client.AddHook(beforeCommand(func(cmd redis.Cmder) {
		if cmd.Name() == "evalsha" || cmd.Name() == "eval" {
			once.Do(func() { _ = mr.Set(key, reissued) })
		}
	}))

	svc, err := NewVerificationService(secretstore.New(client, ""), testVerificationConfig(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	code, err := svc.GenerateCode(ctx, domain.PurposePasswordReset, "01012345678")
	require.NoError(t, err)
	if code == reissued {
		reissued = "333333"
	}

	ok, err := svc.VerifyCode(ctx, domain.PurposePasswordReset, "01012345678", code, true)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, reissued, stored)

	ok, err = svc.VerifyCode(ctx, domain.PurposePasswordReset, "01012345678", reissued, true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerificationService_VerifyCodeWithoutConsume(t *testing.T) {
	_, svc := newTestVerification(t)
	ctx := context.Background()

	code, err := svc.GenerateCode(ctx, domain.PurposePasswordReset, "01012345678")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err := svc.VerifyCode(ctx, domain.PurposePasswordReset, "01012345678", code, false)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestVerificationService_VerifyCodeFailures(t *testing.T) {
	mr, svc := newTestVerification(t)
	ctx := context.Background()
	phone := "01012345678"

	ok, err := svc.VerifyCode(ctx, domain.PurposePasswordReset, phone, "123456", true)
	require.NoError(t, err)
	assert.False(t, ok, "no code issued")

	require.NoError(t, mr.Set("verify:sms:password_reset:"+phone, "999999"))
	ok, err = svc.VerifyCode(ctx, domain.PurposePasswordReset, phone, "123456", true)
	require.NoError(t, err)
	assert.False(t, ok, "mismatch")
	assert.True(t, mr.Exists("verify:sms:password_reset:"+phone), "mismatch keeps the code")

	ok, err = svc.VerifyCode(ctx, domain.PurposeFindAccount, phone, "999999", true)
	require.NoError(t, err)
	assert.False(t, ok, "other purpose")

	code, err := svc.GenerateCode(ctx, domain.PurposePasswordReset, phone)
	require.NoError(t, err)
	mr.FastForward(5*time.Minute + time.Second)
	ok, err = svc.VerifyCode(ctx, domain.PurposePasswordReset, phone, code, true)
	require.NoError(t, err)
	assert.False(t, ok, "expired")
}

func TestVerificationService_ConcurrentVerifyHasOneWinner(t *testing.T) {
	_, svc := newTestVerification(t)
	ctx := context.Background()

	code, err := svc.GenerateCode(ctx, domain.PurposePasswordReset, "01012345678")
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.VerifyCode(ctx, domain.PurposePasswordReset, "01012345678", code, true)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestVerificationService_VerifiedFlag(t *testing.T) {
	mr, svc := newTestVerification(t)
	ctx := context.Background()
	phone := "01012345678"

	ok, err := svc.IsVerified(ctx, domain.PurposeFindAccount, phone)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.MarkVerified(ctx, domain.PurposeFindAccount, phone))
	assert.True(t, mr.Exists("verify:ok:find_account:"+phone))
	assert.Equal(t, 10*time.Minute, mr.TTL("verify:ok:find_account:"+phone))

	ok, err = svc.IsVerified(ctx, domain.PurposeFindAccount, phone)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ConsumeVerified(ctx, domain.PurposeFindAccount, phone)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ConsumeVerified(ctx, domain.PurposeFindAccount, phone)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerificationService_ClearCode(t *testing.T) {
	mr, svc := newTestVerification(t)
	ctx := context.Background()
	phone := "01012345678"

	_, err := svc.GenerateCode(ctx, domain.PurposeFindAccount, phone)
	require.NoError(t, err)
	require.NoError(t, svc.MarkVerified(ctx, domain.PurposeFindAccount, phone))

	require.NoError(t, svc.ClearCode(ctx, domain.PurposeFindAccount, phone))
	assert.False(t, mr.Exists("verify:sms:find_account:"+phone))
	assert.False(t, mr.Exists("verify:ok:find_account:"+phone))
}

func TestVerificationService_RecordFailure(t *testing.T) {
	mr, svc := newTestVerification(t)
	ctx := context.Background()
	phone := "01012345678"

	code, err := svc.GenerateCode(ctx, domain.PurposePasswordReset, phone)
	require.NoError(t, err)

	for i := 1; i < 5; i++ {
		exhausted, err := svc.RecordFailure(ctx, domain.PurposePasswordReset, phone)
		require.NoError(t, err)
		assert.False(t, exhausted, "failure %d", i)
	}
	assert.True(t, mr.Exists("verify:fail:password_reset:01012345678"))

	exhausted, err := svc.RecordFailure(ctx, domain.PurposePasswordReset, phone)
	require.NoError(t, err)
	assert.True(t, exhausted)

	ok, err := svc.VerifyCode(ctx, domain.PurposePasswordReset, phone, code, false)
	require.NoError(t, err)
	assert.False(t, ok, "locked code must not verify")
	assert.False(t, mr.Exists("verify:fail:password_reset:01012345678"))

	t.Run("new code resets the count", func(t *testing.T) {
		_, err := svc.GenerateCode(ctx, domain.PurposePasswordReset, phone)
		require.NoError(t, err)
		_, err = svc.RecordFailure(ctx, domain.PurposePasswordReset, phone)
		require.NoError(t, err)

		_, err = svc.GenerateCode(ctx, domain.PurposePasswordReset, phone)
		require.NoError(t, err)
		assert.False(t, mr.Exists("verify:fail:password_reset:01012345678"))
	})

	t.Run("disabled cap", func(t *testing.T) {
		_, store := newTestStore(t)
		cfg := testVerificationConfig()
		cfg.MaxCodeFailures = 0
		unlimited, err := NewVerificationService(store, cfg, zap.NewNop())
		require.NoError(t, err)

		for i := 0; i < 20; i++ {
			exhausted, err := unlimited.RecordFailure(ctx, domain.PurposeFindAccount, phone)
			require.NoError(t, err)
			assert.False(t, exhausted)
		}
	})
}

func TestVerificationService_Tokens(t *testing.T) {
	mr, svc := newTestVerification(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, "pw_reset", "user-1", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 10*time.Minute, mr.TTL("pw_reset:token:"+token))

	id, ok, err := svc.VerifyToken(ctx, "pw_reset", token, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	_, ok, err = svc.VerifyToken(ctx, "other", token, false)
	require.NoError(t, err)
	assert.False(t, ok, "namespaces do not overlap")

	id, ok, err = svc.VerifyToken(ctx, "pw_reset", token, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	_, ok, err = svc.VerifyToken(ctx, "pw_reset", token, true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = svc.VerifyToken(ctx, "pw_reset", "", true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerificationService_TokenExpiresAndClears(t *testing.T) {
	mr, svc := newTestVerification(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, "auth_token", "a@example.com", time.Minute)
	require.NoError(t, err)
	require.NoError(t, svc.ClearToken(ctx, "auth_token", token))
	_, ok, err := svc.VerifyToken(ctx, "auth_token", token, false)
	require.NoError(t, err)
	assert.False(t, ok)

	token, err = svc.GenerateToken(ctx, "auth_token", "a@example.com", time.Minute)
	require.NoError(t, err)
	mr.FastForward(time.Minute + time.Second)
	_, ok, err = svc.VerifyToken(ctx, "auth_token", token, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerificationService_GenerateTokenNeverRepeats(t *testing.T) {
	_, svc := newTestVerification(t)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		token, err := svc.GenerateToken(ctx, "pw_reset", "user", time.Minute)
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup, "duplicate token %s", token)
		seen[token] = struct{}{}
	}
}

func TestVerificationService_GenerateTokenRetriesOnCollision(t *testing.T) {
	// every other candidate is the same value
	var calls int32
	gen := func() (string, error) {
		n := atomic.AddInt32(&calls, 1)
		if n%2 == 1 {
			return "collide", nil
		}
		return randomToken(16)
	}
	_, svc := newTestVerification(t, WithTokenGenerator(gen))
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		token, err := svc.GenerateToken(ctx, "pw_reset", "user", time.Minute)
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
	_, first := seen["collide"]
	assert.True(t, first, "first call reserves the colliding value")
}

func TestVerificationService_GenerateTokenExhausted(t *testing.T) {
	gen := func() (string, error) { return "same", nil }
	_, svc := newTestVerification(t, WithTokenGenerator(gen))
	ctx := context.Background()

	_, err := svc.GenerateToken(ctx, "pw_reset", "user", time.Minute)
	require.NoError(t, err)

	_, err = svc.GenerateToken(ctx, "pw_reset", "user", time.Minute)
	assert.ErrorIs(t, err, domain.ErrTokenSpaceExhausted)
}

func TestVerificationService_GeneratorError(t *testing.T) {
	boom := errors.New("entropy")
	_, svc := newTestVerification(t, WithTokenGenerator(func() (string, error) { return "", boom }))

	_, err := svc.GenerateToken(context.Background(), "pw_reset", "user", time.Minute)
	assert.ErrorIs(t, err, boom)
}

func TestVerificationService_CacheDown(t *testing.T) {
	mr, svc := newTestVerification(t)
	mr.Close()

	_, err := svc.GenerateCode(context.Background(), domain.PurposePasswordReset, "01012345678")
	assert.ErrorIs(t, err, domain.ErrInfrastructureUnavailable)
}
