// Package ratelimit throttles bursts of requests per client with sliding windows.
package ratelimit

import (
	"context"
	"fmt"
)

// LimitExceeded describes which limit rejected a request.
type LimitExceeded struct {
	Config LimitConfig
	Count  int64
}

// SlidingWindowLimiter checks a client against a set of sliding-window limits.
type SlidingWindowLimiter struct {
	store Store
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(store Store) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{store: store}
}

// Allow records the request under key for every limit and reports the first
// limit that is exceeded, or nil when the request is allowed.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string, limits []LimitConfig) (*LimitExceeded, error) {
	for _, limit := range limits {
		count, err := l.store.Record(ctx, buildKey(key, limit), limit.Window)
		if err != nil {
			return nil, err
		}

		if count > limit.Max {
			return &LimitExceeded{Config: limit, Count: count}, nil
		}
	}

	return nil, nil
}

// buildKey tracks each window independently.
func buildKey(key string, limit LimitConfig) string {
	return fmt.Sprintf("%s:%d", key, limit.Window.Milliseconds())
}
