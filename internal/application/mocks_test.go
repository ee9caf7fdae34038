package application

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) account(args mock.Arguments) (*domain.Account, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindActiveByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return m.account(m.Called(ctx, phone))
}

func (m *MockAccountRepository) FindActiveByIdentifierAndPhone(ctx context.Context, identifier, phone string) (*domain.Account, error) {
	return m.account(m.Called(ctx, identifier, phone))
}

func (m *MockAccountRepository) FindActiveByID(ctx context.Context, id ulid.ULID) (*domain.Account, error) {
	return m.account(m.Called(ctx, id))
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return m.account(m.Called(ctx, email))
}

func (m *MockAccountRepository) SetPassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) Send(ctx context.Context, phone, text string) error {
	args := m.Called(ctx, phone, text)
	return args.Error(0)
}
