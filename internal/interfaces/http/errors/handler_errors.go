package errors

import (
	stderrors "errors"
	"math"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/playtype/account-recovery-service/internal/domain/errors"
)

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.RateLimited:
		return http.StatusTooManyRequests
	case apperrors.InvalidOrExpiredSecret,
		apperrors.AccountNotFound,
		apperrors.AccountInactive,
		apperrors.ValidationFailed:
		return http.StatusBadRequest
	case apperrors.TokenInvalid,
		apperrors.TokenBlacklisted,
		apperrors.InvalidCredentials:
		return http.StatusUnauthorized
	case apperrors.InfrastructureUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondWithAppError writes err using the status mapped from its kind
func RespondWithAppError(w http.ResponseWriter, err error) {
	RespondWithAppErrorStatus(w, err, 0)
}

// RespondWithAppErrorStatus writes err with status, or with the mapped status
// when status is zero. Errors that are not AppErrors are reported as internal
// without exposing their text.
func RespondWithAppErrorStatus(w http.ResponseWriter, err error, status int) {
	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) {
		RespondWithError(w, string(apperrors.Internal), "internal error", nil, http.StatusInternalServerError)
		return
	}

	if status == 0 {
		status = StatusFor(appErr.Code)
	}
	if appErr.Code == apperrors.RateLimited && appErr.RetryAfter > 0 {
		SetRetryAfter(w, appErr.RetryAfter)
	}

	message := appErr.Message
	if appErr.Code == apperrors.Internal {
		message = "internal error"
	}

	var details []ErrorDetail
	for _, d := range appErr.Details {
		details = append(details, ErrorDetail{Field: d.Field, Message: d.Message})
	}
	RespondWithError(w, string(appErr.Code), message, details, status)
}

// SetRetryAfter sets the Retry-After header in whole seconds, rounded up
func SetRetryAfter(w http.ResponseWriter, d time.Duration) {
	seconds := int64(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
}
