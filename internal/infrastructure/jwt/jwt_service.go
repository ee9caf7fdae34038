package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/playtype/account-recovery-service/internal/domain"
	"go.uber.org/zap"
)

// TokenService issues and validates signed session tokens and keeps revoked
// ones in a shared blacklist. It holds no per-process revocation state.
type TokenService struct {
	strategy  domain.JWTStrategy
	blacklist Blacklist
	logger    *zap.Logger
	now       func() time.Time
}

var _ domain.SessionTokenService = (*TokenService)(nil)

func NewTokenService(strategy domain.JWTStrategy, blacklist Blacklist, logger *zap.Logger) *TokenService {
	return &TokenService{
		strategy:  strategy,
		blacklist: blacklist,
		logger:    logger,
		now:       time.Now,
	}
}

func (j *TokenService) parser() *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{j.strategy.Method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	)
}

func (j *TokenService) sign(kind domain.TokenKind, subject string, ttl time.Duration) (string, string, error) {
	now := j.now()
	tokenID := ulid.Make().String()
	claims := domain.Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	token, err := j.strategy.Sign(&claims)
	if err != nil {
		j.logger.Error("Failed to sign token",
			zap.Error(err),
			zap.String("kind", string(kind)),
			zap.String("token_id", tokenID),
			zap.String("subject", subject))
		return "", "", domain.ErrTokenGeneration
	}
	return token, tokenID, nil
}

// IssuePair mints a fresh access and refresh token for subject
func (j *TokenService) IssuePair(ctx context.Context, subject string) (*domain.TokenPair, error) {
	if subject == "" {
		return nil, domain.ErrTokenGeneration
	}

	accessToken, accessID, err := j.sign(domain.TokenKindAccess, subject, j.strategy.GetAccessDuration())
	if err != nil {
		return nil, err
	}
	refreshToken, refreshID, err := j.sign(domain.TokenKindRefresh, subject, j.strategy.GetRefreshDuration())
	if err != nil {
		return nil, err
	}

	j.logger.Debug("Generated token pair",
		zap.String("access_token_id", accessID),
		zap.String("refresh_token_id", refreshID),
		zap.String("subject", subject),
		zap.String("key_id", j.strategy.GetKeyID()))

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// decode verifies signature, expiry and kind. It does not consult the blacklist.
func (j *TokenService) decode(tokenString string, kind domain.TokenKind) (*domain.Claims, error) {
	claims := &domain.Claims{}
	_, err := j.parser().ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.strategy.VerificationKey(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		j.logger.Debug("Failed to parse token", zap.Error(err))
		return nil, domain.ErrTokenInvalid
	}

	if claims.Kind != kind {
		j.logger.Warn("Unexpected token kind",
			zap.String("expected", string(kind)),
			zap.String("actual", string(claims.Kind)),
			zap.String("token_id", claims.ID))
		return nil, domain.ErrTokenWrongKind
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

func (j *TokenService) validate(ctx context.Context, tokenString string, kind domain.TokenKind) (*domain.Claims, error) {
	claims, err := j.decode(tokenString, kind)
	if err != nil {
		return nil, err
	}

	revoked, err := j.blacklist.Contains(ctx, kind, claims.ID)
	if err != nil {
		j.logger.Error("Blacklist lookup failed",
			zap.Error(err),
			zap.String("token_id", claims.ID))
		return nil, err
	}
	if revoked {
		j.logger.Warn("Token is blacklisted",
			zap.String("kind", string(kind)),
			zap.String("token_id", claims.ID))
		return nil, domain.ErrTokenBlacklisted
	}
	return claims, nil
}

// ValidateAccess returns the claims of a live, unrevoked access token
func (j *TokenService) ValidateAccess(ctx context.Context, token string) (*domain.Claims, error) {
	return j.validate(ctx, token, domain.TokenKindAccess)
}

// ValidateRefresh returns the claims of a live, unrevoked refresh token
func (j *TokenService) ValidateRefresh(ctx context.Context, token string) (*domain.Claims, error) {
	return j.validate(ctx, token, domain.TokenKindRefresh)
}

// RefreshAccessToken mints a new access token for the refresh token's
// subject. The refresh token itself is not rotated.
func (j *TokenService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := j.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	token, tokenID, err := j.sign(domain.TokenKindAccess, claims.Subject, j.strategy.GetAccessDuration())
	if err != nil {
		return "", err
	}

	j.logger.Debug("Refreshed access token",
		zap.String("refresh_token_id", claims.ID),
		zap.String("access_token_id", tokenID),
		zap.String("subject", claims.Subject))
	return token, nil
}

// BlacklistAccess revokes an access token for the rest of its lifetime
func (j *TokenService) BlacklistAccess(ctx context.Context, token string) error {
	return j.revoke(ctx, token, domain.TokenKindAccess)
}

// BlacklistRefresh revokes a refresh token for the rest of its lifetime
func (j *TokenService) BlacklistRefresh(ctx context.Context, token string) error {
	return j.revoke(ctx, token, domain.TokenKindRefresh)
}

func (j *TokenService) revoke(ctx context.Context, tokenString string, kind domain.TokenKind) error {
	claims, err := j.decode(tokenString, kind)
	if errors.Is(err, domain.ErrTokenExpired) {
		// already unusable
		return nil
	}
	if err != nil {
		return err
	}

	ttl := claims.ExpiresAt.Time.Sub(j.now())
	if ttl <= 0 {
		return nil
	}

	if err := j.blacklist.Add(ctx, kind, claims.ID, ttl); err != nil {
		j.logger.Error("Failed to blacklist token",
			zap.Error(err),
			zap.String("kind", string(kind)),
			zap.String("token_id", claims.ID))
		return err
	}

	j.logger.Info("Token blacklisted",
		zap.String("kind", string(kind)),
		zap.String("token_id", claims.ID),
		zap.Duration("ttl", ttl))
	return nil
}

// IsAccessBlacklisted reports whether a well-signed access token was revoked.
// Tokens that cannot be decoded yield an error so callers deny access.
func (j *TokenService) IsAccessBlacklisted(ctx context.Context, token string) (bool, error) {
	claims, err := j.decode(token, domain.TokenKindAccess)
	if err != nil {
		return false, err
	}
	return j.blacklist.Contains(ctx, domain.TokenKindAccess, claims.ID)
}
