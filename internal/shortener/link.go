// Package shortener issues short tokens for long URLs and resolves them back.
package shortener

import (
	"context"
	"errors"
	"time"

	"github.com/serroba/tiered-shortener/internal/quota"
)

// MaxURLLength bounds the stored long URL.
const MaxURLLength = 2048

var (
	ErrNotFound          = errors.New("link not found")
	ErrTokenTaken        = errors.New("token already in use")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidURL        = errors.New("invalid url")
	ErrCapacityExhausted = errors.New("could not allocate a unique token")
)

// Token is the short identifier of a link.
type Token string

// URLHash is the hex SHA-256 of a long URL, used to index idempotency lookups.
type URLHash string

// Link maps a short token to a long URL owned by an account.
type Link struct {
	ID        string
	Token     Token
	LongURL   string
	URLHash   URLHash
	AccountID string
	HitCount  int64
	CreatedAt time.Time
}

// RequestType classifies request log entries.
type RequestType string

// RequestCreate is logged for every link that consumed quota.
const RequestCreate RequestType = "create"

// RequestLogEntry is an append-only record of a quota-consuming request.
type RequestLogEntry struct {
	ID        string
	AccountID string
	Type      RequestType
	Timestamp time.Time
}

// Tx is the unit of work for creating a link. Everything done through it is
// committed or rolled back together.
type Tx interface {
	quota.Counter

	// Reserve inserts the link if its token is free. Returns ErrTokenTaken
	// without side effects otherwise.
	Reserve(ctx context.Context, link *Link) error

	// AppendRequestLog records a quota-consuming request.
	AppendRequestLog(ctx context.Context, entry *RequestLogEntry) error
}

// Repository defines link storage operations.
type Repository interface {
	// FindByLongURL returns the account's existing link for longURL, or ErrNotFound.
	FindByLongURL(ctx context.Context, accountID, longURL string) (*Link, error)

	// FindByToken returns the link for token, or ErrNotFound.
	FindByToken(ctx context.Context, token Token) (*Link, error)

	// ListByAccount returns the account's links, oldest first.
	ListByAccount(ctx context.Context, accountID string) ([]*Link, error)

	// RecordHit atomically increments the hit counter. Returns ErrNotFound if absent.
	RecordHit(ctx context.Context, token Token) error

	// WithinTx runs fn in a transaction, rolling back if fn returns an error.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
