package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Factory constructs the embedding model. It is called at most once per successful initialization.
type Factory func(ctx context.Context) (domain.Embedder, error)

// Lazy holds one shared embedding model per process, built by factory on first use.
// Concurrent first callers block on a single initialization; a failed initialization
// is not cached and the next call tries again.
type Lazy struct {
	factory Factory
	logger  *zap.Logger

	mu    sync.Mutex
	model atomic.Pointer[loaded]
}

type loaded struct {
	embedder domain.Embedder
}

// NewLazy creates a lazily initialized embedder.
func NewLazy(factory Factory, logger *zap.Logger) *Lazy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lazy{factory: factory, logger: logger}
}

// Ready reports whether the model has been initialized.
func (l *Lazy) Ready() bool { return l.model.Load() != nil }

// Get returns the shared model, initializing it if needed.
func (l *Lazy) Get(ctx context.Context) (domain.Embedder, error) {
	if m := l.model.Load(); m != nil {
		return m.embedder, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if m := l.model.Load(); m != nil {
		return m.embedder, nil
	}

	start := time.Now()
	e, err := l.factory(ctx)
	if err == nil && e == nil {
		err = errors.New("factory returned no model")
	}
	if err != nil {
		metrics.EmbeddingModelInitTotal.WithLabelValues("error").Inc()
		l.logger.Error("Embedding model init failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, wrapEmbedding("init embedding model", err)
	}

	metrics.EmbeddingModelInitTotal.WithLabelValues("success").Inc()
	l.logger.Info("Embedding model initialized", zap.Duration("duration", time.Since(start)))
	l.model.Store(&loaded{embedder: e})
	return e, nil
}

// Embed implements domain.Embedder.
func (l *Lazy) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	e, err := l.Get(ctx)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	res, err := e.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("lazy embed: %w", err)
	}
	return res, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (l *Lazy) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	e, err := l.Get(ctx)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	res, err := domain.EmbedMany(ctx, e, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("lazy batch embed: %w", err)
	}
	return res, nil
}

// HealthCheck initializes the model if needed and delegates when supported.
func (l *Lazy) HealthCheck(ctx context.Context) error {
	e, err := l.Get(ctx)
	if err != nil {
		return err
	}
	if hc, ok := e.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("lazy health check: %w", err)
		}
	}
	return nil
}
