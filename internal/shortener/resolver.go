package shortener

import (
	"context"
	"errors"
	"fmt"
)

// HitRecorder counts a resolved redirect. Record must not block.
type HitRecorder interface {
	Record(token Token)
}

// Resolver turns tokens back into long URLs.
type Resolver struct {
	repo Repository
	hits HitRecorder
}

// NewResolver creates a resolver that reports hits to the given recorder.
func NewResolver(repo Repository, hits HitRecorder) *Resolver {
	return &Resolver{repo: repo, hits: hits}
}

// Resolve validates the token, looks it up and hands the hit off without waiting.
func (r *Resolver) Resolve(ctx context.Context, token string) (string, error) {
	if err := ValidateToken(token); err != nil {
		return "", err
	}

	link, err := r.repo.FindByToken(ctx, Token(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("find link: %w", err)
	}

	r.hits.Record(link.Token)

	return link.LongURL, nil
}
