package domain

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULID represents a Universally Unique Lexicographically Sortable Identifier
// @Description A string representation of ULID
// @type string
// @format ulid
type ULID = ulid.ULID

// Account is the slice of a user record this service needs.
// Email doubles as the login identifier.
type Account struct {
	ID           ulid.ULID `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountRepository is the account lookup collaborator owned by user management.
// Lookups return ErrAccountNotFound when nothing matches.
type AccountRepository interface {
	// FindActiveByPhone finds an active account registered with the phone number
	FindActiveByPhone(ctx context.Context, phone string) (*Account, error)

	// FindActiveByIdentifierAndPhone finds an active account matching both values
	FindActiveByIdentifierAndPhone(ctx context.Context, identifier, phone string) (*Account, error)

	// FindActiveByID finds an active account by ID
	FindActiveByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// FindByEmail finds an account by email regardless of its state
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// SetPassword stores a new password hash for the account
	SetPassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
