package domain

import (
	"context"
	"time"
)

// Purpose namespaces codes, flags and tokens so one flow cannot redeem another's.
type Purpose string

const (
	PurposeFindAccount   Purpose = "find_account"
	PurposePasswordReset Purpose = "password_reset"
)

// Valid reports whether p is a known purpose
func (p Purpose) Valid() bool {
	switch p {
	case PurposeFindAccount, PurposePasswordReset:
		return true
	}
	return false
}

// ParsePurpose converts raw input into a Purpose
func ParsePurpose(raw string) (Purpose, error) {
	p := Purpose(raw)
	if !p.Valid() {
		return "", ErrInvalidPurpose
	}
	return p, nil
}

// Period is a fixed rate limiting window.
type Period string

const (
	PeriodMinute Period = "minute"
	PeriodHourly Period = "hourly"
	PeriodDaily  Period = "daily"
)

// TTL returns the window length. Unknown periods return zero.
func (p Period) TTL() time.Duration {
	switch p {
	case PeriodMinute:
		return time.Minute
	case PeriodHourly:
		return time.Hour
	case PeriodDaily:
		return 24 * time.Hour
	}
	return 0
}

// RateWindow pairs a period with the number of sends it allows.
type RateWindow struct {
	Period Period
	Limit  int64
}

// SMSSender dispatches text messages. Delivery is best effort.
type SMSSender interface {
	Send(ctx context.Context, phone, text string) error
}
