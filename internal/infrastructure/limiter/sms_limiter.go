package limiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/playtype/account-recovery-service/internal/infrastructure/secretstore"
	"go.uber.org/zap"
)

const namespace = "limiter_sms"

// SMSLimiter is a fixed-window send counter per phone number
type SMSLimiter struct {
	store  *secretstore.Store
	logger *zap.Logger
}

// NewSMSLimiter creates a limiter whose counters live under "limiter_sms"
func NewSMSLimiter(store *secretstore.Store, logger *zap.Logger) *SMSLimiter {
	return &SMSLimiter{
		store:  store.Namespace(namespace),
		logger: logger,
	}
}

func counterKey(phone string, period domain.Period) string {
	return fmt.Sprintf("%s:%s", period, strings.TrimSpace(phone))
}

// CanSend reports whether another send fits in the current window. It never mutates the counter.
func (l *SMSLimiter) CanSend(ctx context.Context, phone string, period domain.Period, limit int64) (bool, error) {
	if period.TTL() == 0 {
		return false, domain.ErrInvalidPeriod
	}
	count, err := l.store.Count(ctx, counterKey(phone, period))
	if err != nil {
		return false, err
	}
	return count < limit, nil
}

// Record counts a send and reports whether it stayed within limit. The
// counter is incremented before it is compared so that concurrent senders
// cannot both slip under the limit. A non-positive ttl uses the period length.
func (l *SMSLimiter) Record(ctx context.Context, phone string, period domain.Period, limit int64, ttl time.Duration) (bool, time.Duration, error) {
	if period.TTL() == 0 {
		return false, 0, domain.ErrInvalidPeriod
	}
	if ttl <= 0 {
		ttl = period.TTL()
	}

	key := counterKey(phone, period)
	count, err := l.store.Incr(ctx, key, ttl)
	if err != nil {
		l.logger.Error("Failed to record sms send",
			zap.String("period", string(period)),
			zap.Error(err))
		return false, 0, err
	}
	if count <= limit {
		return true, 0, nil
	}

	retryAfter, err := l.store.TTL(ctx, key)
	if err != nil {
		return false, 0, err
	}
	if retryAfter < time.Second {
		retryAfter = time.Second
	}

	l.logger.Info("Sms send rate limited",
		zap.String("phone", domain.Mask(phone)),
		zap.String("period", string(period)),
		zap.Int64("count", count),
		zap.Duration("retry_after", retryAfter))
	return false, retryAfter, nil
}

// Remaining returns how long until the current window resets
func (l *SMSLimiter) Remaining(ctx context.Context, phone string, period domain.Period) (time.Duration, error) {
	return l.store.TTL(ctx, counterKey(phone, period))
}
