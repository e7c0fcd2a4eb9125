package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/tiered-shortener/internal/shortener"
	"go.uber.org/zap"
)

// RedisCacheRepository wraps a Repository with a Redis read-through cache for
// token lookups. Tokens and long URLs never change once created, so entries are
// never invalidated; the cached hit count is informational only.
type RedisCacheRepository struct {
	shortener.Repository

	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		Repository: store,
		client:     client,
		prefix:     "link:",
		ttl:        ttl,
		logger:     logger,
	}
}

// FindByToken retrieves a link by its token, checking the cache first.
func (r *RedisCacheRepository) FindByToken(ctx context.Context, token shortener.Token) (*shortener.Link, error) {
	if link, err := r.getFromCache(ctx, token); err == nil {
		return link, nil
	}

	link, err := r.Repository.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	r.cacheLink(ctx, link)

	return link, nil
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, token shortener.Token) (*shortener.Link, error) {
	result, err := r.client.HGetAll(ctx, r.prefix+string(token)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, shortener.ErrNotFound
	}

	link := &shortener.Link{
		ID:        result["id"],
		Token:     shortener.Token(result["token"]),
		LongURL:   result["long_url"],
		URLHash:   shortener.URLHash(result["url_hash"]),
		AccountID: result["account_id"],
	}

	if hits, err := strconv.ParseInt(result["hit_count"], 10, 64); err == nil {
		link.HitCount = hits
	}

	if nanos, err := strconv.ParseInt(result["created_at"], 10, 64); err == nil {
		link.CreatedAt = time.Unix(0, nanos).UTC()
	}

	return link, nil
}

func (r *RedisCacheRepository) cacheLink(ctx context.Context, link *shortener.Link) {
	pipe := r.client.Pipeline()
	key := r.prefix + string(link.Token)

	pipe.HSet(ctx, key, map[string]interface{}{
		"id":         link.ID,
		"token":      string(link.Token),
		"long_url":   link.LongURL,
		"url_hash":   string(link.URLHash),
		"account_id": link.AccountID,
		"hit_count":  link.HitCount,
		"created_at": link.CreatedAt.UnixNano(),
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("failed to cache link",
			zap.String("token", string(link.Token)),
			zap.Error(err),
		)
	}
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)
