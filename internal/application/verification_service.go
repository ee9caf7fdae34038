package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/playtype/account-recovery-service/internal/infrastructure/secretstore"
	"go.uber.org/zap"
)

const (
	codePrefix = "verify:sms"
	flagPrefix = "verify:ok"
	failPrefix = "verify:fail"
	flagValue  = "1"
)

// VerificationConfig holds code and token lifetimes. All values except
// MaxCodeFailures must be positive; MaxCodeFailures of zero disables the cap.
type VerificationConfig struct {
	CodeLength       int
	CodeTTL          time.Duration
	FlagTTL          time.Duration
	TokenTTL         time.Duration
	TokenBytes       int
	TokenMaxAttempts int
	MaxCodeFailures  int
}

// TokenGenerator produces candidate opaque tokens
type TokenGenerator func() (string, error)

// VerificationOption customises a VerificationService
type VerificationOption func(*VerificationService)

// WithTokenGenerator replaces the random token source
func WithTokenGenerator(gen TokenGenerator) VerificationOption {
	return func(s *VerificationService) {
		s.newToken = gen
	}
}

// VerificationService issues numeric codes bound to (purpose, phone), the
// verified flags that follow a successful check, and single-use opaque tokens.
type VerificationService struct {
	store    *secretstore.Store
	cfg      VerificationConfig
	newToken TokenGenerator
	logger   *zap.Logger
}

func NewVerificationService(store *secretstore.Store, cfg VerificationConfig, logger *zap.Logger, opts ...VerificationOption) (*VerificationService, error) {
	if cfg.CodeLength <= 0 || cfg.CodeTTL <= 0 || cfg.FlagTTL <= 0 || cfg.TokenTTL <= 0 ||
		cfg.TokenBytes <= 0 || cfg.TokenMaxAttempts <= 0 {
		return nil, domain.ErrInvalidVerificationConfig
	}

	s := &VerificationService{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
	s.newToken = func() (string, error) { return randomToken(cfg.TokenBytes) }
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func codeKey(purpose domain.Purpose, phone string) string {
	return fmt.Sprintf("%s:%s:%s", codePrefix, purpose, normalize(phone))
}

func flagKey(purpose domain.Purpose, phone string) string {
	return fmt.Sprintf("%s:%s:%s", flagPrefix, purpose, normalize(phone))
}

func failKey(purpose domain.Purpose, phone string) string {
	return fmt.Sprintf("%s:%s:%s", failPrefix, purpose, normalize(phone))
}

func tokenKey(namespace, token string) string {
	return namespace + ":token:" + token
}

// GenerateCode issues a fresh code for (purpose, phone). Any earlier code is overwritten.
func (s *VerificationService) GenerateCode(ctx context.Context, purpose domain.Purpose, phone string) (string, error) {
	code, err := randomDigits(s.cfg.CodeLength)
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, codeKey(purpose, phone), code, s.cfg.CodeTTL); err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, failKey(purpose, phone)); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyCode reports whether submitted matches the live code. With consume
// the code is deleted on match; of two racing verifiers only one succeeds.
// Absent and mismatched codes are indistinguishable.
func (s *VerificationService) VerifyCode(ctx context.Context, purpose domain.Purpose, phone, submitted string, consume bool) (bool, error) {
	key := codeKey(purpose, phone)
	stored, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if !equal(stored, submitted) {
		return false, nil
	}
	if !consume {
		return true, nil
	}

	return s.store.ConsumeIf(ctx, key, stored)
}

// MarkVerified records that (purpose, phone) passed code verification
func (s *VerificationService) MarkVerified(ctx context.Context, purpose domain.Purpose, phone string) error {
	return s.store.Put(ctx, flagKey(purpose, phone), flagValue, s.cfg.FlagTTL)
}

// IsVerified reports whether a live verified flag exists without consuming it
func (s *VerificationService) IsVerified(ctx context.Context, purpose domain.Purpose, phone string) (bool, error) {
	return s.store.Exists(ctx, flagKey(purpose, phone))
}

// ConsumeVerified removes the verified flag and reports whether it was live
func (s *VerificationService) ConsumeVerified(ctx context.Context, purpose domain.Purpose, phone string) (bool, error) {
	_, ok, err := s.store.Consume(ctx, flagKey(purpose, phone))
	return ok, err
}

// RecordFailure counts a failed check against the live code. The failure that
// reaches MaxCodeFailures drops the code and reports exhausted.
func (s *VerificationService) RecordFailure(ctx context.Context, purpose domain.Purpose, phone string) (bool, error) {
	if s.cfg.MaxCodeFailures <= 0 {
		return false, nil
	}
	n, err := s.store.Incr(ctx, failKey(purpose, phone), s.cfg.CodeTTL)
	if err != nil {
		return false, err
	}
	if n < int64(s.cfg.MaxCodeFailures) {
		return false, nil
	}
	s.logger.Warn("Verification code locked after repeated failures",
		zap.String("purpose", string(purpose)),
		zap.String("phone", domain.Mask(phone)))
	return true, s.ClearCode(ctx, purpose, phone)
}

// ClearCode drops the code, its failure count and the verified flag for (purpose, phone)
func (s *VerificationService) ClearCode(ctx context.Context, purpose domain.Purpose, phone string) error {
	return s.store.Delete(ctx, codeKey(purpose, phone), flagKey(purpose, phone), failKey(purpose, phone))
}

// RemainingTTL returns how long the current code stays valid
func (s *VerificationService) RemainingTTL(ctx context.Context, purpose domain.Purpose, phone string) (time.Duration, error) {
	return s.store.TTL(ctx, codeKey(purpose, phone))
}

// GenerateToken reserves a unique opaque token under namespace that maps back
// to identifier. ttl <= 0 uses the configured token lifetime.
func (s *VerificationService) GenerateToken(ctx context.Context, namespace, identifier string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.TokenTTL
	}

	for attempt := 1; attempt <= s.cfg.TokenMaxAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		ok, err := s.store.PutIfAbsent(ctx, tokenKey(namespace, token), identifier, ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		s.logger.Warn("Token collision, retrying",
			zap.String("namespace", namespace),
			zap.Int("attempt", attempt))
	}

	s.logger.Error("Token space exhausted",
		zap.String("namespace", namespace),
		zap.Int("max_attempts", s.cfg.TokenMaxAttempts))
	return "", domain.ErrTokenSpaceExhausted
}

// VerifyToken returns the identifier behind token. With consume the token is
// deleted atomically, so it can be redeemed once.
func (s *VerificationService) VerifyToken(ctx context.Context, namespace, token string, consume bool) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	if consume {
		return s.store.Consume(ctx, tokenKey(namespace, token))
	}
	return s.store.Get(ctx, tokenKey(namespace, token))
}

// ClearToken invalidates token
func (s *VerificationService) ClearToken(ctx context.Context, namespace, token string) error {
	return s.store.Delete(ctx, tokenKey(namespace, token))
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
