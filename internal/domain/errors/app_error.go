package apperrors

import (
	"errors"
	"time"
)

// Kind classifies an error at the orchestrator boundary
type Kind string

// Error kinds
const (
	RateLimited               Kind = "RATE_LIMITED"
	InvalidOrExpiredSecret    Kind = "INVALID_OR_EXPIRED_SECRET"
	AccountNotFound           Kind = "ACCOUNT_NOT_FOUND"
	AccountInactive           Kind = "ACCOUNT_INACTIVE"
	InvalidCredentials        Kind = "INVALID_CREDENTIALS"
	TokenInvalid              Kind = "TOKEN_INVALID"
	TokenBlacklisted          Kind = "TOKEN_BLACKLISTED"
	ValidationFailed          Kind = "VALIDATION_FAILED"
	InfrastructureUnavailable Kind = "INFRASTRUCTURE_UNAVAILABLE"
	Internal                  Kind = "INTERNAL_ERROR"
)

const (
	msgRateLimited    = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."
	msgInfrastructure = "일시적으로 요청을 처리할 수 없습니다. 잠시 후 다시 시도해주세요."
)

// FieldError describes a single invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents an application error
// @Description An application error with a kind, a message and optional field details
type AppError struct {
	Code       Kind          `json:"code"`
	Message    string        `json:"message"`
	Details    []FieldError  `json:"details,omitempty"`
	RetryAfter time.Duration `json:"-"`
	Err        error         `json:"-"`
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewRateLimited creates an error for a rejected send that may be retried later
func NewRateLimited(retryAfter time.Duration) *AppError {
	return &AppError{Code: RateLimited, Message: msgRateLimited, RetryAfter: retryAfter}
}

// NewInvalidOrExpiredSecret creates an error for a missing or wrong code, flag or grant
func NewInvalidOrExpiredSecret(message string) *AppError {
	return &AppError{Code: InvalidOrExpiredSecret, Message: message}
}

// NewAccountNotFound creates a not found error
func NewAccountNotFound(message string) *AppError {
	return &AppError{Code: AccountNotFound, Message: message}
}

// NewAccountInactive creates an error for an account that can no longer be used
func NewAccountInactive(message string) *AppError {
	return &AppError{Code: AccountInactive, Message: message}
}

// NewInvalidCredentials creates a login failure error
func NewInvalidCredentials(message string) *AppError {
	return &AppError{Code: InvalidCredentials, Message: message}
}

// NewTokenInvalid creates an authentication error for a bad token
func NewTokenInvalid(message string, err error) *AppError {
	return &AppError{Code: TokenInvalid, Message: message, Err: err}
}

// NewTokenBlacklisted creates an authentication error for a revoked token
func NewTokenBlacklisted(message string) *AppError {
	return &AppError{Code: TokenBlacklisted, Message: message}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...FieldError) *AppError {
	return &AppError{Code: ValidationFailed, Message: message, Details: details}
}

// NewInfrastructureUnavailable creates a retryable error for a backend failure
func NewInfrastructureUnavailable(err error) *AppError {
	return &AppError{Code: InfrastructureUnavailable, Message: msgInfrastructure, Err: err}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: Internal, Message: message, Err: err}
}

// KindOf returns the kind of err, or Internal when err is not an AppError
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return Internal
}

// Is reports whether err is an AppError of the given kind
func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == kind
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return Is(err, ValidationFailed)
}

// IsAuthenticationError checks if the error should be surfaced as unauthenticated
func IsAuthenticationError(err error) bool {
	return Is(err, TokenInvalid) || Is(err, TokenBlacklisted) || Is(err, InvalidCredentials)
}

// IsRetryable checks if the client may retry the same request later
func IsRetryable(err error) bool {
	return Is(err, RateLimited) || Is(err, InfrastructureUnavailable)
}
