package analytics

import (
	"context"
	"errors"

	"github.com/serroba/tiered-shortener/internal/shortener"
	"go.uber.org/zap"
)

// HitCounter is the part of the link repository the consumer needs.
type HitCounter interface {
	RecordHit(ctx context.Context, token shortener.Token) error
}

// Handlers apply consumed events.
type Handlers struct {
	hits   HitCounter
	logger *zap.Logger
}

// NewHandlers creates event handlers backed by the link repository.
func NewHandlers(hits HitCounter, logger *zap.Logger) *Handlers {
	return &Handlers{hits: hits, logger: logger}
}

// LinkCreated logs the creation; links are already persisted by the producer.
func (h *Handlers) LinkCreated(_ context.Context, event *LinkCreatedEvent) error {
	h.logger.Info("link created",
		zap.String("token", event.Token),
		zap.String("accountId", event.AccountID),
		zap.Bool("custom", event.Custom),
		zap.Time("createdAt", event.CreatedAt),
	)

	return nil
}

// LinkResolved increments the hit counter of the resolved link. Links that no
// longer exist are acknowledged so they are not redelivered forever.
func (h *Handlers) LinkResolved(ctx context.Context, event *LinkResolvedEvent) error {
	err := h.hits.RecordHit(ctx, shortener.Token(event.Token))
	if errors.Is(err, shortener.ErrNotFound) {
		h.logger.Warn("hit for unknown link", zap.String("token", event.Token))

		return nil
	}

	return err
}
