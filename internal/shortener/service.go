package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/tiered-shortener/internal/account"
	"github.com/serroba/tiered-shortener/internal/quota"
	"go.uber.org/zap"
)

// DefaultMaxAttempts caps generated-token retries after collisions.
const DefaultMaxAttempts = 5

// Request asks for a long URL to be shortened, optionally under a chosen token.
type Request struct {
	LongURL     string
	CustomToken string
}

// Result is the outcome of a shorten call. Created is false when an existing
// link for the same URL and account was returned.
type Result struct {
	Link    *Link
	Created bool
}

// Service reserves tokens and persists links, consuming quota per created link.
type Service struct {
	repo        Repository
	gate        *quota.Gate
	generate    Generator
	maxAttempts int
	logger      *zap.Logger
}

// NewService creates a shortening service. maxAttempts below 1 uses DefaultMaxAttempts.
func NewService(
	repo Repository,
	gate *quota.Gate,
	generate Generator,
	maxAttempts int,
	logger *zap.Logger,
) *Service {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Service{
		repo:        repo,
		gate:        gate,
		generate:    generate,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Shorten returns the account's link for req.LongURL, creating it if needed.
// The caller authenticates the account and checks quota beforehand.
func (s *Service) Shorten(ctx context.Context, acct *account.Account, req Request) (*Result, error) {
	if err := ValidateURL(req.LongURL); err != nil {
		return nil, err
	}

	if req.CustomToken != "" {
		if err := ValidateToken(req.CustomToken); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.FindByLongURL(ctx, acct.ID, req.LongURL)
	if err == nil {
		return &Result{Link: existing}, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find existing link: %w", err)
	}

	if req.CustomToken != "" {
		if IsReserved(req.CustomToken) {
			return nil, ErrTokenTaken
		}

		link, err := s.create(ctx, acct, Token(req.CustomToken), req.LongURL)
		if err != nil {
			return nil, err
		}

		return &Result{Link: link, Created: true}, nil
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		token := s.generate()
		if IsReserved(token) {
			continue
		}

		link, err := s.create(ctx, acct, Token(token), req.LongURL)
		if err == nil {
			return &Result{Link: link, Created: true}, nil
		}

		if !errors.Is(err, ErrTokenTaken) {
			return nil, err
		}

		s.logger.Debug("generated token collided",
			zap.String("accountId", acct.ID),
			zap.Int("attempt", attempt),
		)
	}

	s.logger.Error("token space exhausted",
		zap.String("accountId", acct.ID),
		zap.Int("attempts", s.maxAttempts),
	)

	return nil, ErrCapacityExhausted
}

// create reserves the token, consumes quota and logs the request in one transaction.
func (s *Service) create(ctx context.Context, acct *account.Account, token Token, longURL string) (*Link, error) {
	now := time.Now().UTC()
	link := &Link{
		ID:        uuid.NewString(),
		Token:     token,
		LongURL:   longURL,
		URLHash:   HashURL(longURL),
		AccountID: acct.ID,
		CreatedAt: now,
	}

	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Reserve(ctx, link); err != nil {
			return err
		}

		if err := s.gate.Consume(ctx, tx, acct); err != nil {
			return err
		}

		return tx.AppendRequestLog(ctx, &RequestLogEntry{
			ID:        uuid.NewString(),
			AccountID: acct.ID,
			Type:      RequestCreate,
			Timestamp: now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrTokenTaken) || errors.Is(err, quota.ErrQuotaExceeded) {
			return nil, err
		}

		return nil, fmt.Errorf("create link: %w", err)
	}

	return link, nil
}

// List returns the account's links.
func (s *Service) List(ctx context.Context, acct *account.Account) ([]*Link, error) {
	links, err := s.repo.ListByAccount(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	return links, nil
}
