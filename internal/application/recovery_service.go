package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/playtype/account-recovery-service/internal/domain"
	apperrors "github.com/playtype/account-recovery-service/internal/domain/errors"
	"github.com/playtype/account-recovery-service/internal/infrastructure/limiter"
	"github.com/playtype/account-recovery-service/internal/infrastructure/password"
	"go.uber.org/zap"
)

// ResetNamespace prefixes password reset grant tokens in the cache
const ResetNamespace = "pw_reset"

// Messages returned to clients by operations that only report success
const (
	MsgCodeVerified    = "인증이 성공하였습니다."
	MsgPasswordChanged = "비밀번호가 성공적으로 변경되었습니다."
)

const (
	msgCodeSent          = "인증번호를 전송했습니다."
	msgCodeInvalid       = "인증번호가 올바르지 않거나 만료되었습니다."
	msgVerifyRequired    = "휴대폰 인증이 필요합니다."
	msgAccountNotFound   = "일치하는 계정을 찾을 수 없습니다."
	msgAccountFound      = "계정을 찾았습니다."
	msgResetRequested    = "비밀번호 재설정 요청이 확인되었습니다."
	msgGrantMissing      = "인증 정보가 없습니다."
	msgGrantInvalid      = "유효하지 않거나 만료된 인증입니다."
	msgInvalidRequest    = "유효하지 않은 요청입니다."
	msgInvalidInput      = "입력값이 올바르지 않습니다."
	msgInvalidPhone      = "전화번호 형식이 올바르지 않습니다."
	msgInvalidPurpose    = "지원하지 않는 인증 목적입니다."
	msgIdentifierMissing = "아이디를 입력해주세요."
	smsTemplate          = "PlayType 인증 코드: %s"
)

var phonePattern = regexp.MustCompile(`^\d{10,15}$`)

// RecoveryConfig tunes the recovery flows
type RecoveryConfig struct {
	Windows    []domain.RateWindow
	ResetTTL   time.Duration
	DebugCodes bool
}

// RecoveryService runs SMS verification, find-account and password reset.
// Every step that depends on an earlier one consumes that step's secret.
type RecoveryService struct {
	limiter      *limiter.SMSLimiter
	verification *VerificationService
	accounts     domain.AccountRepository
	sms          domain.SMSSender
	cfg          RecoveryConfig
	logger       *zap.Logger
}

var _ domain.RecoveryOrchestrator = (*RecoveryService)(nil)

func NewRecoveryService(
	smsLimiter *limiter.SMSLimiter,
	verification *VerificationService,
	accounts domain.AccountRepository,
	sms domain.SMSSender,
	cfg RecoveryConfig,
	logger *zap.Logger,
) *RecoveryService {
	return &RecoveryService{
		limiter:      smsLimiter,
		verification: verification,
		accounts:     accounts,
		sms:          sms,
		cfg:          cfg,
		logger:       logger,
	}
}

// unavailable converts a lower layer failure into the boundary error
func unavailable(err error) error {
	if errors.Is(err, domain.ErrInfrastructureUnavailable) {
		return apperrors.NewInfrastructureUnavailable(err)
	}
	return apperrors.NewInternalError("internal error", err)
}

func validatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", apperrors.NewValidationError(msgInvalidInput,
			apperrors.FieldError{Field: "phone_number", Message: msgInvalidPhone})
	}
	return phone, nil
}

func validatePurpose(purpose domain.Purpose) error {
	if !purpose.Valid() {
		return apperrors.NewValidationError(msgInvalidInput,
			apperrors.FieldError{Field: "purpose", Message: msgInvalidPurpose})
	}
	return nil
}

// SendCode counts the send against every window, then issues and texts a fresh code.
func (s *RecoveryService) SendCode(ctx context.Context, phone string, purpose domain.Purpose) (*domain.CodeDispatch, error) {
	phone, err := validatePhone(phone)
	if err != nil {
		return nil, err
	}
	if err := validatePurpose(purpose); err != nil {
		return nil, err
	}

	for _, w := range s.cfg.Windows {
		ok, retryAfter, err := s.limiter.Record(ctx, phone, w.Period, w.Limit, 0)
		if err != nil {
			return nil, unavailable(err)
		}
		if !ok {
			return nil, apperrors.NewRateLimited(retryAfter)
		}
	}

	code, err := s.verification.GenerateCode(ctx, purpose, phone)
	if err != nil {
		return nil, unavailable(err)
	}

	if err := s.sms.Send(ctx, phone, fmt.Sprintf(smsTemplate, code)); err != nil {
		s.logger.Warn("Failed to deliver verification code",
			zap.String("phone", domain.Mask(phone)),
			zap.String("purpose", string(purpose)),
			zap.Error(err))
	}

	dispatch := &domain.CodeDispatch{Message: msgCodeSent}
	if s.cfg.DebugCodes {
		dispatch.Code = code
	}
	return dispatch, nil
}

// VerifyCode checks the code without consuming it and sets the verified flag.
func (s *RecoveryService) VerifyCode(ctx context.Context, phone string, purpose domain.Purpose, code string) error {
	phone, err := validatePhone(phone)
	if err != nil {
		return err
	}
	if err := validatePurpose(purpose); err != nil {
		return err
	}

	ok, err := s.verification.VerifyCode(ctx, purpose, phone, strings.TrimSpace(code), false)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		if _, err := s.verification.RecordFailure(ctx, purpose, phone); err != nil {
			return unavailable(err)
		}
		return apperrors.NewInvalidOrExpiredSecret(msgCodeInvalid)
	}

	if err := s.verification.MarkVerified(ctx, purpose, phone); err != nil {
		return unavailable(err)
	}
	return nil
}

// FindAccount reveals the masked identifier registered to a verified phone.
// The flag and code are spent whatever the outcome.
func (s *RecoveryService) FindAccount(ctx context.Context, phone string) (*domain.FoundAccount, error) {
	phone, err := validatePhone(phone)
	if err != nil {
		return nil, err
	}

	verified, err := s.verification.ConsumeVerified(ctx, domain.PurposeFindAccount, phone)
	if err != nil {
		return nil, unavailable(err)
	}
	if err := s.verification.ClearCode(ctx, domain.PurposeFindAccount, phone); err != nil {
		return nil, unavailable(err)
	}
	if !verified {
		return nil, apperrors.NewInvalidOrExpiredSecret(msgVerifyRequired)
	}

	account, err := s.accounts.FindActiveByPhone(ctx, phone)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return &domain.FoundAccount{Exists: false, Message: msgAccountNotFound}, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}

	return &domain.FoundAccount{
		Exists:     true,
		Identifier: domain.MaskEmail(account.Email),
		Message:    msgAccountFound,
	}, nil
}

// RequestPasswordReset exchanges a verified phone plus matching identifier
// for a single-use reset grant.
func (s *RecoveryService) RequestPasswordReset(ctx context.Context, identifier, phone, code string) (*domain.ResetGrant, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperrors.NewValidationError(msgInvalidInput,
			apperrors.FieldError{Field: "identifier", Message: msgIdentifierMissing})
	}
	phone, err := validatePhone(phone)
	if err != nil {
		return nil, err
	}

	verified, err := s.verification.ConsumeVerified(ctx, domain.PurposePasswordReset, phone)
	if err != nil {
		return nil, unavailable(err)
	}
	if !verified {
		return nil, apperrors.NewInvalidOrExpiredSecret(msgVerifyRequired)
	}

	if code = strings.TrimSpace(code); code != "" {
		ok, err := s.verification.VerifyCode(ctx, domain.PurposePasswordReset, phone, code, true)
		if err != nil {
			return nil, unavailable(err)
		}
		if !ok {
			if err := s.verification.ClearCode(ctx, domain.PurposePasswordReset, phone); err != nil {
				return nil, unavailable(err)
			}
			return nil, apperrors.NewInvalidOrExpiredSecret(msgCodeInvalid)
		}
	}
	if err := s.verification.ClearCode(ctx, domain.PurposePasswordReset, phone); err != nil {
		return nil, unavailable(err)
	}

	account, err := s.accounts.FindActiveByIdentifierAndPhone(ctx, identifier, phone)
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.logger.Info("Password reset requested for unknown account",
			zap.String("phone", domain.Mask(phone)))
		return nil, apperrors.NewAccountNotFound(msgAccountNotFound)
	}
	if err != nil {
		return nil, unavailable(err)
	}

	token, err := s.verification.GenerateToken(ctx, ResetNamespace, account.ID.String(), s.cfg.ResetTTL)
	if err != nil {
		return nil, unavailable(err)
	}

	s.logger.Info("Password reset grant issued",
		zap.String("account_id", account.ID.String()),
		zap.Duration("ttl", s.cfg.ResetTTL))
	return &domain.ResetGrant{
		Token:   token,
		TTL:     s.cfg.ResetTTL,
		Message: msgResetRequested,
	}, nil
}

// ConfirmPasswordReset redeems the grant once and stores the new password.
func (s *RecoveryService) ConfirmPasswordReset(ctx context.Context, grantToken, newPassword, newPasswordConfirm string) error {
	if violations := password.Validate(newPassword, newPasswordConfirm); len(violations) > 0 {
		return apperrors.NewValidationError(msgInvalidInput, violations...)
	}
	if grantToken == "" {
		return apperrors.NewInvalidOrExpiredSecret(msgGrantMissing)
	}

	accountID, ok, err := s.verification.VerifyToken(ctx, ResetNamespace, grantToken, true)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return apperrors.NewInvalidOrExpiredSecret(msgGrantInvalid)
	}

	id, err := domain.ParseULID(accountID)
	if err != nil {
		s.logger.Error("Reset grant holds a malformed account id", zap.Error(err))
		return apperrors.NewAccountInactive(msgInvalidRequest)
	}

	if _, err := s.accounts.FindActiveByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return apperrors.NewAccountInactive(msgInvalidRequest)
		}
		return unavailable(err)
	}

	hash, err := password.HashPassword(newPassword)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}

	if err := s.accounts.SetPassword(ctx, id, hash); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return apperrors.NewAccountInactive(msgInvalidRequest)
		}
		return unavailable(err)
	}

	s.logger.Info("Password reset completed", zap.String("account_id", id.String()))
	return nil
}
