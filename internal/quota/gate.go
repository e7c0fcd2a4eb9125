// Package quota enforces the per-account link creation allowance of each tier.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/tiered-shortener/internal/account"
)

// ErrQuotaExceeded is returned when an account has used up its tier allowance.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Counter increments an account's request count only while it stays below limit.
// It reports false when the condition did not hold and nothing was changed.
type Counter interface {
	IncrementRequestCount(ctx context.Context, accountID string, limit int64) (bool, error)
}

// Exceeded describes a denied request.
type Exceeded struct {
	Tier  int
	Limit int64
	Used  int64
}

func (e *Exceeded) Error() string {
	return fmt.Sprintf("quota exceeded: %d/%d requests for tier %d", e.Used, e.Limit, e.Tier)
}

func (e *Exceeded) Unwrap() error {
	return ErrQuotaExceeded
}

// Gate decides whether an account may create another link.
type Gate struct {
	limits TierLimits
}

// NewGate creates a quota gate over the given tier table.
func NewGate(limits TierLimits) *Gate {
	return &Gate{limits: limits}
}

// Limit returns the allowance for a tier.
func (g *Gate) Limit(tier int) int64 {
	return g.limits.Limit(tier)
}

// Authorize checks the account snapshot against its tier limit. It has no side
// effects; Consume is the authoritative check.
func (g *Gate) Authorize(acct *account.Account) error {
	limit := g.limits.Limit(acct.Tier)
	if acct.RequestCount < limit {
		return nil
	}

	return &Exceeded{Tier: acct.Tier, Limit: limit, Used: acct.RequestCount}
}

// Consume records one unit of usage through a conditional increment, so
// concurrent callers cannot push the count past the limit.
func (g *Gate) Consume(ctx context.Context, counter Counter, acct *account.Account) error {
	limit := g.limits.Limit(acct.Tier)
	if limit <= 0 {
		return &Exceeded{Tier: acct.Tier, Limit: limit, Used: acct.RequestCount}
	}

	ok, err := counter.IncrementRequestCount(ctx, acct.ID, limit)
	if err != nil {
		return fmt.Errorf("increment request count: %w", err)
	}

	if !ok {
		return &Exceeded{Tier: acct.Tier, Limit: limit, Used: limit}
	}

	return nil
}
