package domain

import (
	"context"
	"time"
)

// CodeDispatch is the outcome of sending a verification code.
// Code is only populated when debug echo is enabled.
type CodeDispatch struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// FoundAccount is the result of a find-account lookup. Identifier is always masked.
type FoundAccount struct {
	Exists     bool   `json:"exists"`
	Identifier string `json:"identifier,omitempty"`
	Message    string `json:"message"`
}

// ResetGrant is a password reset authorization. Token travels only in a cookie.
type ResetGrant struct {
	Token   string
	TTL     time.Duration
	Message string
}

// RecoveryOrchestrator drives phone verification and password recovery.
type RecoveryOrchestrator interface {
	SendCode(ctx context.Context, phone string, purpose Purpose) (*CodeDispatch, error)
	VerifyCode(ctx context.Context, phone string, purpose Purpose, code string) error
	FindAccount(ctx context.Context, phone string) (*FoundAccount, error)
	RequestPasswordReset(ctx context.Context, identifier, phone, code string) (*ResetGrant, error)
	ConfirmPasswordReset(ctx context.Context, grantToken, newPassword, newPasswordConfirm string) error
}

// SessionOrchestrator drives the login, refresh and logout lifecycle.
type SessionOrchestrator interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
}
