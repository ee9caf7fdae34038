package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/playtype/account-recovery-service/internal/domain"
	apperrors "github.com/playtype/account-recovery-service/internal/domain/errors"
	httperrors "github.com/playtype/account-recovery-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

const (
	msgUnauthorized = "Unauthorized"
	msgTokenRevoked = "Token has been revoked"
	msgTokenExpired = "Token has expired"
	msgTokenInvalid = "Invalid token"
)

// AccessValidator checks bearer access tokens, including the blacklist
type AccessValidator interface {
	ValidateAccess(ctx context.Context, token string) (*domain.Claims, error)
}

type AuthMiddleware struct {
	tokens AccessValidator
	logger *zap.Logger
}

func NewAuthMiddleware(tokens AccessValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// Authenticator rejects requests without a live access token and stores the
// subject, token id and raw token in the request context.
func (m *AuthMiddleware) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := jwtauth.TokenFromHeader(r)
		if token == "" {
			httperrors.RespondWithError(w, httperrors.ErrCodeAuthentication, msgUnauthorized, nil, http.StatusUnauthorized)
			return
		}

		claims, err := m.tokens.ValidateAccess(r.Context(), token)
		if err != nil {
			m.reject(w, err)
			return
		}

		ctx := domain.WithSubject(r.Context(), claims.Subject)
		ctx = domain.WithTokenID(ctx, claims.ID)
		ctx = domain.WithAccessToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, domain.ErrInfrastructureUnavailable):
		m.logger.Error("Cannot check access token", zap.Error(err))
		appErr = apperrors.NewInfrastructureUnavailable(err)
	case errors.Is(err, domain.ErrTokenBlacklisted):
		appErr = apperrors.NewTokenBlacklisted(msgTokenRevoked)
	case errors.Is(err, domain.ErrTokenExpired):
		appErr = apperrors.NewTokenInvalid(msgTokenExpired, err)
	default:
		m.logger.Debug("Rejected access token", zap.Error(err))
		appErr = apperrors.NewTokenInvalid(msgTokenInvalid, err)
	}
	httperrors.RespondWithAppError(w, appErr)
}
