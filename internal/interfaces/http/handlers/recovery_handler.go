package handlers

import (
	"net/http"

	"github.com/playtype/account-recovery-service/internal/application"
	"github.com/playtype/account-recovery-service/internal/domain"
	apperrors "github.com/playtype/account-recovery-service/internal/domain/errors"
	"github.com/playtype/account-recovery-service/internal/interfaces/http/dto"
	httperrors "github.com/playtype/account-recovery-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// RecoveryHandler handles phone verification and password recovery requests
type RecoveryHandler struct {
	service domain.RecoveryOrchestrator
	cookies CookieConfig
	logger  *zap.Logger
}

// NewRecoveryHandler creates a new RecoveryHandler
func NewRecoveryHandler(service domain.RecoveryOrchestrator, cookies CookieConfig, logger *zap.Logger) *RecoveryHandler {
	return &RecoveryHandler{
		service: service,
		cookies: cookies,
		logger:  logger,
	}
}

// SendCode godoc
// @Summary Send a verification code
// @Description Texts a one-time code to the phone, subject to hourly and daily send limits
// @Tags recovery
// @Accept json
// @Produce json
// @Param request body dto.SendCodeRequest true "Phone and purpose"
// @Success 200 {object} dto.SendCodeResponse
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 429 {object} httperrors.ErrorResponse
// @Failure 503 {object} httperrors.ErrorResponse
// @Router /code/send [post]
func (h *RecoveryHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req dto.SendCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	dispatch, err := h.service.SendCode(r.Context(), req.PhoneNumber, domain.Purpose(req.Purpose))
	if err != nil {
		httperrors.RespondWithAppError(w, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, dto.SendCodeResponse{
		Message: dispatch.Message,
		Code:    dispatch.Code,
	})
}

// VerifyCode godoc
// @Summary Verify a code
// @Description Checks the code and marks the phone verified for the purpose
// @Tags recovery
// @Accept json
// @Produce json
// @Param request body dto.VerifyCodeRequest true "Phone, purpose and code"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 503 {object} httperrors.ErrorResponse
// @Router /code/verify [post]
func (h *RecoveryHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.VerifyCode(r.Context(), req.PhoneNumber, domain.Purpose(req.Purpose), req.Code); err != nil {
		httperrors.RespondWithAppError(w, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, dto.MessageResponse{Message: application.MsgCodeVerified})
}

// FindAccount godoc
// @Summary Find an account by verified phone
// @Description Returns the masked identifier of the account registered to the phone
// @Tags recovery
// @Accept json
// @Produce json
// @Param request body dto.FindAccountRequest true "Verified phone"
// @Success 200 {object} dto.FindAccountResponse
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 503 {object} httperrors.ErrorResponse
// @Router /find-account [post]
func (h *RecoveryHandler) FindAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.FindAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	found, err := h.service.FindAccount(r.Context(), req.PhoneNumber)
	if err != nil {
		httperrors.RespondWithAppError(w, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, dto.FindAccountResponse{
		Exists:     found.Exists,
		Identifier: found.Identifier,
		Message:    found.Message,
	})
}

// RequestPasswordReset godoc
// @Summary Request a password reset
// @Description Exchanges a verified phone and matching identifier for a reset grant stored in an HttpOnly cookie
// @Tags recovery
// @Accept json
// @Produce json
// @Param request body dto.PasswordResetRequest true "Identifier and verified phone"
// @Success 200 {object} dto.MessageResponse
// @Header 200 {string} Set-Cookie "pw_reset_token"
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 503 {object} httperrors.ErrorResponse
// @Router /password/reset/request [post]
func (h *RecoveryHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	grant, err := h.service.RequestPasswordReset(r.Context(), req.Identifier, req.PhoneNumber, req.Code)
	if err != nil {
		httperrors.RespondWithAppError(w, err)
		return
	}

	h.cookies.setResetGrant(w, grant.Token, grant.TTL)
	respondJSON(w, h.logger, http.StatusOK, dto.MessageResponse{Message: grant.Message})
}

// ConfirmPasswordReset godoc
// @Summary Confirm a password reset
// @Description Redeems the reset grant cookie once and stores the new password
// @Tags recovery
// @Accept json
// @Produce json
// @Param request body dto.PasswordResetConfirmRequest true "New password"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 503 {object} httperrors.ErrorResponse
// @Router /password/reset/confirm [post]
func (h *RecoveryHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	grant := cookieValue(r, ResetCookieName)
	err := h.service.ConfirmPasswordReset(r.Context(), grant, req.NewPassword, req.NewPasswordConfirm)
	if err != nil {
		// a grant that was rejected or already redeemed is useless to keep
		if apperrors.Is(err, apperrors.InvalidOrExpiredSecret) || apperrors.Is(err, apperrors.AccountInactive) {
			h.cookies.clearResetGrant(w)
		}
		httperrors.RespondWithAppError(w, err)
		return
	}

	h.cookies.clearResetGrant(w)
	respondJSON(w, h.logger, http.StatusOK, dto.MessageResponse{Message: application.MsgPasswordChanged})
}
