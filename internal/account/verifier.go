package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Verifier checks credential pairs against stored accounts.
type Verifier struct {
	repo      Repository
	hasher    Hasher
	dummyHash string
	logger    *zap.Logger
}

// NewVerifier creates a credential verifier. A dummy hash is computed up front
// so unknown identifiers cost the same comparison as known ones.
func NewVerifier(repo Repository, hasher Hasher, logger *zap.Logger) (*Verifier, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return &Verifier{
		repo:      repo,
		hasher:    hasher,
		dummyHash: dummy,
		logger:    logger,
	}, nil
}

// Verify returns the account for a valid pair. Any mismatch yields ErrAuthFailed;
// other errors are storage failures.
func (v *Verifier) Verify(ctx context.Context, identifier, secret string) (*Account, error) {
	acct, err := v.repo.GetAccountByEmail(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("get account: %w", err)
		}

		_ = v.hasher.Compare(v.dummyHash, secret)
		v.logFailure(identifier)

		return nil, ErrAuthFailed
	}

	if err := v.hasher.Compare(acct.PasswordHash, secret); err != nil {
		v.logFailure(identifier)

		return nil, ErrAuthFailed
	}

	return acct, nil
}

func (v *Verifier) logFailure(identifier string) {
	sum := sha256.Sum256([]byte(identifier))

	v.logger.Warn("authentication failed",
		zap.String("identity", hex.EncodeToString(sum[:8])),
	)
}
