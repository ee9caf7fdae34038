package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/playtype/account-recovery-service/internal/application"
	"github.com/playtype/account-recovery-service/internal/domain"
	apperrors "github.com/playtype/account-recovery-service/internal/domain/errors"
	"github.com/playtype/account-recovery-service/internal/interfaces/http/dto"
	httperrors "github.com/playtype/account-recovery-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// SessionHandler handles login, token refresh and logout
type SessionHandler struct {
	service    domain.SessionOrchestrator
	cookies    CookieConfig
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewSessionHandler creates a new SessionHandler. refreshTTL bounds the
// lifetime of the refresh token cookie.
func NewSessionHandler(service domain.SessionOrchestrator, cookies CookieConfig, refreshTTL time.Duration, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		service:    service,
		cookies:    cookies,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Login godoc
// @Summary Email login
// @Description Issues an access token in the body and a refresh token in an HttpOnly cookie
// @Tags session
// @Accept json
// @Produce json
// @Param credentials body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.AccessTokenResponse
// @Header 200 {string} Set-Cookie "refresh_token"
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 401 {object} httperrors.ErrorResponse
// @Failure 403 {object} httperrors.ErrorResponse
// @Router /login [post]
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		status := 0
		if apperrors.Is(err, apperrors.AccountInactive) {
			status = http.StatusForbidden
		}
		httperrors.RespondWithAppErrorStatus(w, err, status)
		return
	}

	h.cookies.setRefreshToken(w, pair.RefreshToken, h.refreshTTL)
	respondJSON(w, h.logger, http.StatusOK, dto.AccessTokenResponse{AccessToken: pair.AccessToken})
}

// Refresh godoc
// @Summary Refresh the access token
// @Description Mints a new access token from the refresh token in the body or cookie. Blacklisted refresh tokens are rejected.
// @Tags session
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest false "Refresh token, when not sent as a cookie"
// @Success 200 {object} dto.AccessTokenResponse
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 401 {object} httperrors.ErrorResponse
// @Router /token/refresh [post]
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httperrors.RespondWithError(w, httperrors.ErrCodeInvalidRequest, msgInvalidRequest, nil, http.StatusBadRequest)
		return
	}

	token := req.RefreshToken
	if token == "" {
		token = cookieValue(r, RefreshCookieName)
	}

	access, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		httperrors.RespondWithAppError(w, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, dto.AccessTokenResponse{AccessToken: access})
}

// Logout godoc
// @Summary Logout
// @Description Blacklists the refresh token cookie and the bearer access token, then clears the cookie
// @Tags session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.LogoutResponse
// @Failure 401 {object} httperrors.ErrorResponse
// @Failure 503 {object} httperrors.ErrorResponse
// @Router /logout [post]
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	access, _ := domain.GetAccessToken(r.Context())
	refresh := cookieValue(r, RefreshCookieName)

	if err := h.service.Logout(r.Context(), refresh, access); err != nil {
		httperrors.RespondWithAppError(w, err)
		return
	}

	h.cookies.clearRefreshToken(w)
	respondJSON(w, h.logger, http.StatusOK, dto.LogoutResponse{Detail: application.MsgLoggedOut})
}

// Me godoc
// @Summary Current subject
// @Description Returns the subject of the bearer access token
// @Tags session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MeResponse
// @Failure 401 {object} httperrors.ErrorResponse
// @Router /me [get]
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := domain.GetSubject(r.Context())
	if !ok || subject == "" {
		httperrors.RespondWithError(w, httperrors.ErrCodeAuthentication, "Unauthorized", nil, http.StatusUnauthorized)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, dto.MeResponse{Subject: subject})
}
