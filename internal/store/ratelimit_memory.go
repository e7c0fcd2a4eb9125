package store

import (
	"context"
	"sync"
	"time"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(key, now.Add(-window))

	s.requests[key] = append(s.requests[key], now)

	return int64(len(s.requests[key])), nil
}

// prune drops timestamps at or before cutoff. Timestamps are appended in order,
// so the first one still inside the window marks the split.
func (s *RateLimitMemoryStore) prune(key string, cutoff time.Time) {
	timestamps := s.requests[key]

	i := 0
	for i < len(timestamps) && !timestamps[i].After(cutoff) {
		i++
	}

	if i == len(timestamps) {
		delete(s.requests, key)

		return
	}

	s.requests[key] = append(timestamps[:0:0], timestamps[i:]...)
}
