package handlers

import (
	"context"

	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockRecoveryService struct {
	mock.Mock
}

func (m *mockRecoveryService) SendCode(ctx context.Context, phone string, purpose domain.Purpose) (*domain.CodeDispatch, error) {
	args := m.Called(ctx, phone, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CodeDispatch), args.Error(1)
}

func (m *mockRecoveryService) VerifyCode(ctx context.Context, phone string, purpose domain.Purpose, code string) error {
	args := m.Called(ctx, phone, purpose, code)
	return args.Error(0)
}

func (m *mockRecoveryService) FindAccount(ctx context.Context, phone string) (*domain.FoundAccount, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FoundAccount), args.Error(1)
}

func (m *mockRecoveryService) RequestPasswordReset(ctx context.Context, identifier, phone, code string) (*domain.ResetGrant, error) {
	args := m.Called(ctx, identifier, phone, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResetGrant), args.Error(1)
}

func (m *mockRecoveryService) ConfirmPasswordReset(ctx context.Context, grantToken, newPassword, newPasswordConfirm string) error {
	args := m.Called(ctx, grantToken, newPassword, newPasswordConfirm)
	return args.Error(0)
}

type mockSessionService struct {
	mock.Mock
}

func (m *mockSessionService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenPair), args.Error(1)
}

func (m *mockSessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *mockSessionService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	args := m.Called(ctx, refreshToken, accessToken)
	return args.Error(0)
}
