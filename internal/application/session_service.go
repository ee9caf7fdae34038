package application

import (
	"context"
	"errors"
	"strings"

	"github.com/playtype/account-recovery-service/internal/domain"
	apperrors "github.com/playtype/account-recovery-service/internal/domain/errors"
	"github.com/playtype/account-recovery-service/internal/infrastructure/password"
	"go.uber.org/zap"
)

const (
	msgInvalidCredentials = "이메일 또는 비밀번호가 올바르지 않습니다."
	msgAccountWithdrawn   = "탈퇴 신청한 계정입니다."
	msgRefreshMissing     = "refresh token 소실"
	msgRefreshBlacklisted = "blacklisted refresh token"
	msgRefreshInvalid     = "invalid refresh token"
	// MsgLoggedOut is returned to clients after logout
	MsgLoggedOut = "로그아웃 되었습니다."
)

// SessionService handles login, access token refresh and logout
type SessionService struct {
	accounts domain.AccountRepository
	tokens   domain.SessionTokenService
	logger   *zap.Logger
}

var _ domain.SessionOrchestrator = (*SessionService)(nil)

func NewSessionService(accounts domain.AccountRepository, tokens domain.SessionTokenService, logger *zap.Logger) *SessionService {
	return &SessionService{
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
	}
}

// Login checks the credentials and issues a fresh token pair
func (s *SessionService) Login(ctx context.Context, email, passwordStr string) (*domain.TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || passwordStr == "" {
		return nil, apperrors.NewInvalidCredentials(msgInvalidCredentials)
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, apperrors.NewInvalidCredentials(msgInvalidCredentials)
	}
	if err != nil {
		return nil, unavailable(err)
	}

	if err := password.CheckPassword(passwordStr, account.PasswordHash); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.logger.Error("Stored password hash is unusable",
				zap.String("account_id", account.ID.String()),
				zap.Error(err))
		}
		return nil, apperrors.NewInvalidCredentials(msgInvalidCredentials)
	}

	if !account.Active {
		return nil, apperrors.NewAccountInactive(msgAccountWithdrawn)
	}

	pair, err := s.tokens.IssuePair(ctx, account.ID.String())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate token", err)
	}

	s.logger.Info("User logged in", zap.String("account_id", account.ID.String()))
	return pair, nil
}

// Refresh mints a new access token from a live refresh token
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperrors.NewValidationError(msgRefreshMissing,
			apperrors.FieldError{Field: "refresh_token", Message: msgRefreshMissing})
	}

	access, err := s.tokens.RefreshAccessToken(ctx, refreshToken)
	switch {
	case err == nil:
		return access, nil
	case errors.Is(err, domain.ErrTokenBlacklisted):
		return "", apperrors.NewTokenBlacklisted(msgRefreshBlacklisted)
	case errors.Is(err, domain.ErrInfrastructureUnavailable):
		return "", apperrors.NewInfrastructureUnavailable(err)
	case errors.Is(err, domain.ErrTokenGeneration):
		return "", apperrors.NewInternalError("failed to generate token", err)
	default:
		return "", apperrors.NewTokenInvalid(msgRefreshInvalid, err)
	}
}

// Logout revokes whichever tokens are presented. Tokens that are already
// unusable are skipped; a revocation that cannot be stored is an error.
func (s *SessionService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	revocations := []struct {
		token  string
		kind   domain.TokenKind
		revoke func(context.Context, string) error
	}{
		{refreshToken, domain.TokenKindRefresh, s.tokens.BlacklistRefresh},
		{accessToken, domain.TokenKindAccess, s.tokens.BlacklistAccess},
	}

	for _, r := range revocations {
		if r.token == "" {
			continue
		}
		err := r.revoke(ctx, r.token)
		if err == nil {
			continue
		}
		if errors.Is(err, domain.ErrInfrastructureUnavailable) {
			return apperrors.NewInfrastructureUnavailable(err)
		}
		s.logger.Debug("Skipping token that cannot be revoked",
			zap.String("kind", string(r.kind)),
			zap.Error(err))
	}
	return nil
}
