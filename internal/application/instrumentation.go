package application

import (
	"context"
	"time"

	"github.com/playtype/account-recovery-service/internal/domain"
	apperrors "github.com/playtype/account-recovery-service/internal/domain/errors"
	"go.uber.org/zap"
)

// observe logs one orchestrator call. Failures caused by the caller log at
// info, everything else that failed logs at error.
func observe(logger *zap.Logger, op string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("op", op),
		zap.Duration("duration", time.Since(start)))

	if err == nil {
		logger.Debug("Operation completed", fields...)
		return
	}

	kind := apperrors.KindOf(err)
	fields = append(fields, zap.String("error_kind", string(kind)))
	switch kind {
	case apperrors.Internal, apperrors.InfrastructureUnavailable:
		logger.Error("Operation failed", append(fields, zap.Error(err))...)
	default:
		logger.Info("Operation rejected", fields...)
	}
}

type instrumentedRecovery struct {
	next   domain.RecoveryOrchestrator
	logger *zap.Logger
}

// InstrumentRecovery wraps next with per-call logging
func InstrumentRecovery(next domain.RecoveryOrchestrator, logger *zap.Logger) domain.RecoveryOrchestrator {
	return &instrumentedRecovery{next: next, logger: logger.Named("recovery")}
}

func (r *instrumentedRecovery) SendCode(ctx context.Context, phone string, purpose domain.Purpose) (d *domain.CodeDispatch, err error) {
	defer func(start time.Time) {
		observe(r.logger, "send_code", start, err,
			zap.String("phone", domain.Mask(phone)), zap.String("purpose", string(purpose)))
	}(time.Now())
	return r.next.SendCode(ctx, phone, purpose)
}

func (r *instrumentedRecovery) VerifyCode(ctx context.Context, phone string, purpose domain.Purpose, code string) (err error) {
	defer func(start time.Time) {
		observe(r.logger, "verify_code", start, err,
			zap.String("phone", domain.Mask(phone)), zap.String("purpose", string(purpose)))
	}(time.Now())
	return r.next.VerifyCode(ctx, phone, purpose, code)
}

func (r *instrumentedRecovery) FindAccount(ctx context.Context, phone string) (f *domain.FoundAccount, err error) {
	defer func(start time.Time) {
		fields := []zap.Field{zap.String("phone", domain.Mask(phone))}
		if f != nil {
			fields = append(fields, zap.Bool("exists", f.Exists))
		}
		observe(r.logger, "find_account", start, err, fields...)
	}(time.Now())
	return r.next.FindAccount(ctx, phone)
}

func (r *instrumentedRecovery) RequestPasswordReset(ctx context.Context, identifier, phone, code string) (g *domain.ResetGrant, err error) {
	defer func(start time.Time) {
		observe(r.logger, "request_password_reset", start, err, zap.String("phone", domain.Mask(phone)))
	}(time.Now())
	return r.next.RequestPasswordReset(ctx, identifier, phone, code)
}

func (r *instrumentedRecovery) ConfirmPasswordReset(ctx context.Context, grantToken, newPassword, newPasswordConfirm string) (err error) {
	defer func(start time.Time) {
		observe(r.logger, "confirm_password_reset", start, err)
	}(time.Now())
	return r.next.ConfirmPasswordReset(ctx, grantToken, newPassword, newPasswordConfirm)
}

type instrumentedSession struct {
	next   domain.SessionOrchestrator
	logger *zap.Logger
}

// InstrumentSession wraps next with per-call logging
func InstrumentSession(next domain.SessionOrchestrator, logger *zap.Logger) domain.SessionOrchestrator {
	return &instrumentedSession{next: next, logger: logger.Named("session")}
}

func (s *instrumentedSession) Login(ctx context.Context, email, password string) (p *domain.TokenPair, err error) {
	defer func(start time.Time) {
		observe(s.logger, "login", start, err, zap.String("email", domain.MaskEmail(email)))
	}(time.Now())
	return s.next.Login(ctx, email, password)
}

func (s *instrumentedSession) Refresh(ctx context.Context, refreshToken string) (t string, err error) {
	defer func(start time.Time) {
		observe(s.logger, "refresh", start, err)
	}(time.Now())
	return s.next.Refresh(ctx, refreshToken)
}

func (s *instrumentedSession) Logout(ctx context.Context, refreshToken, accessToken string) (err error) {
	defer func(start time.Time) {
		observe(s.logger, "logout", start, err,
			zap.Bool("refresh", refreshToken != ""), zap.Bool("access", accessToken != ""))
	}(time.Now())
	return s.next.Logout(ctx, refreshToken, accessToken)
}
