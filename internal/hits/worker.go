// Package hits counts redirects off the request path.
package hits

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/tiered-shortener/internal/analytics"
	"github.com/serroba/tiered-shortener/internal/messaging"
	"github.com/serroba/tiered-shortener/internal/shortener"
	"go.uber.org/zap"
)

// Sink persists or forwards a single hit.
type Sink func(ctx context.Context, token shortener.Token) error

// Config sizes the worker.
type Config struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Worker buffers hits and flushes them to a sink from a fixed set of goroutines.
type Worker struct {
	queue   chan shortener.Token
	sink    Sink
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorker starts cfg.Workers goroutines draining a queue of cfg.QueueSize hits.
func NewWorker(sink Sink, cfg Config, logger *zap.Logger) *Worker {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1024
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	w := &Worker{
		queue:   make(chan shortener.Token, cfg.QueueSize),
		sink:    sink,
		timeout: cfg.Timeout,
		logger:  logger,
	}

	w.wg.Add(cfg.Workers)

	for range cfg.Workers {
		go w.run()
	}

	return w
}

// Record enqueues a hit. It never blocks: when the queue is full or the worker
// is shut down the hit is dropped and logged.
func (w *Worker) Record(token shortener.Token) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.logger.Warn("hit dropped after shutdown", zap.String("token", string(token)))

		return
	}

	select {
	case w.queue <- token:
	default:
		w.logger.Warn("hit queue full, dropping hit", zap.String("token", string(token)))
	}
}

func (w *Worker) run() {
	defer w.wg.Done()

	for token := range w.queue {
		w.flush(token)
	}
}

func (w *Worker) flush(token shortener.Token) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.sink(ctx, token); err != nil {
		w.logger.Error("failed to record hit",
			zap.String("token", string(token)),
			zap.Error(err),
		)
	}
}

// Shutdown stops accepting hits and waits for queued ones to be flushed.
func (w *Worker) Shutdown() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	w.wg.Wait()

	return nil
}

// RepositorySink writes hits straight to the link repository.
func RepositorySink(repo analytics.HitCounter) Sink {
	return repo.RecordHit
}

// StreamSink publishes hits as LinkResolvedEvent for the consumer to apply.
func StreamSink(publish messaging.Publish[analytics.LinkResolvedEvent]) Sink {
	return func(ctx context.Context, token shortener.Token) error {
		return publish(ctx, &analytics.LinkResolvedEvent{
			Token:      string(token),
			ResolvedAt: time.Now().UTC(),
		})
	}
}

// Compile-time check.
var _ shortener.HitRecorder = (*Worker)(nil)
