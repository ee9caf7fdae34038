package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/playtype/account-recovery-service/internal/infrastructure/database"
	"go.uber.org/zap"
)

const accountColumns = `id, email, phone, password, is_active, updated_at`

// AccountRepository reads and updates the users table owned by user management
type AccountRepository struct {
	logger *zap.Logger
	db     *database.Postgres
}

var _ domain.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *database.Postgres, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger}
}

func (r *AccountRepository) findOne(ctx context.Context, op, query string, args ...interface{}) (*domain.Account, error) {
	account := &domain.Account{}
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&account.ID, &account.Email, &account.Phone, &account.PasswordHash, &account.Active, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		r.logger.Error("failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrInfrastructureUnavailable, err)
	}
	return account, nil
}

func (r *AccountRepository) FindActiveByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return r.findOne(ctx, "find account by phone", `
		SELECT `+accountColumns+`
		FROM users WHERE phone = $1 AND is_active
		ORDER BY created_at ASC
		LIMIT 1
	`, strings.TrimSpace(phone))
}

func (r *AccountRepository) FindActiveByIdentifierAndPhone(ctx context.Context, identifier, phone string) (*domain.Account, error) {
	return r.findOne(ctx, "find account by identifier and phone", `
		SELECT `+accountColumns+`
		FROM users WHERE LOWER(email) = LOWER($1) AND phone = $2 AND is_active
	`, strings.TrimSpace(identifier), strings.TrimSpace(phone))
}

func (r *AccountRepository) FindActiveByID(ctx context.Context, id ulid.ULID) (*domain.Account, error) {
	return r.findOne(ctx, "find account by id", `
		SELECT `+accountColumns+`
		FROM users WHERE id = $1 AND is_active
	`, id.String())
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "find account by email", `
		SELECT `+accountColumns+`
		FROM users WHERE LOWER(email) = LOWER($1)
	`, strings.TrimSpace(email))
}

// SetPassword only touches active accounts
func (r *AccountRepository) SetPassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	n, err := r.db.Exec(ctx, `
		UPDATE users
		SET password = $1, updated_at = $2
		WHERE id = $3 AND is_active
	`, passwordHash, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInfrastructureUnavailable, err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
