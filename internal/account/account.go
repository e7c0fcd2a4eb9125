// Package account holds caller identities: registration, credential
// verification and the per-account usage counters consumed by quota checks.
package account

import (
	"context"
	"errors"
	"time"
)

// DefaultTier is assigned when registration does not request a tier.
const DefaultTier = 1

var (
	// ErrNotFound is returned by repositories when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAuthFailed is the single outcome for any rejected credential pair.
	ErrAuthFailed = errors.New("invalid credentials")
	// ErrInvalid wraps registration input that fails validation.
	ErrInvalid = errors.New("invalid registration")
)

// Account is a registered caller.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Tier         int
	RequestCount int64
	CreatedAt    time.Time
}

// Summary is the public view of an account.
type Summary struct {
	ID    string
	Name  string
	Email string
	Tier  int
}

// Summary strips credentials from the account.
func (a *Account) Summary() Summary {
	return Summary{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		Tier:  a.Tier,
	}
}

// Repository defines the account storage operations.
type Repository interface {
	// CreateAccount inserts a new account. Returns ErrEmailTaken when the
	// email is already registered.
	CreateAccount(ctx context.Context, account *Account) error

	// GetAccountByEmail looks up an account by its stored email.
	// Returns ErrNotFound when no account matches.
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
}
