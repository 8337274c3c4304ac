package embedding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// DefaultMaxBatchSize is the largest number of texts sent to the provider in one call.
const DefaultMaxBatchSize = 256

var (
	errEmptyVector = fmt.Errorf("empty vector: %w", domain.ErrEmbedding)
	// a zero vector has no direction, so cosine scores against it are undefined
	errZeroVector = fmt.Errorf("zero vector: %w", domain.ErrEmbedding)
)

// InstrumentedEmbedder splits batches to the provider limit, rejects empty
// and all-zero vectors and counts texts and failures per provider and model. Transport
// level metrics (requests, latency, tokens) belong to the provider client.
type InstrumentedEmbedder struct {
	inner        domain.Embedder
	provider     string
	model        string
	maxBatchSize int
	logger       *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. maxBatchSize <= 0 selects DefaultMaxBatchSize.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, maxBatchSize int, logger *zap.Logger,
) *InstrumentedEmbedder {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:        inner,
		provider:     provider,
		model:        model,
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
}

// Embed embeds a single text.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := p.inner.Embed(ctx, text)
	if err == nil {
		err = checkVector(res.Embedding)
	}
	if err != nil {
		return domain.EmbeddingResult{}, p.failed("embed", err, zap.Duration("duration", time.Since(start)))
	}
	p.completed(start, 1, res.TotalTokens)
	return res, nil
}

// BatchEmbed embeds texts in provider-sized parts. The result holds exactly
// one non-empty vector per input text, in input order.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: [][]float32{}}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for part := range slices.Chunk(texts, p.maxBatchSize) {
		offset := len(out.Embeddings)
		res, err := domain.EmbedMany(ctx, p.inner, part)
		if err == nil {
			err = nonEmpty(res.Embeddings, offset)
		}
		if err != nil {
			return domain.BatchEmbeddingResult{}, p.failed("batch embed", err,
				zap.Int("offset", offset), zap.Int("size", len(part)))
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	p.completed(start, len(texts), out.TotalTokens)
	return out, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return wrapEmbedding("health check", err)
	}
	return nil
}

func nonEmpty(vectors [][]float32, offset int) error {
	for i, v := range vectors {
		if err := checkVector(v); err != nil {
			return fmt.Errorf("text %d: %w", offset+i, err)
		}
	}
	return nil
}

func checkVector(v []float32) error {
	if len(v) == 0 {
		return errEmptyVector
	}
	if !slices.ContainsFunc(v, func(x float32) bool { return x != 0 }) {
		return errZeroVector
	}
	return nil
}

func (p *InstrumentedEmbedder) completed(start time.Time, texts, tokens int) {
	metrics.EmbeddingTextsTotal.WithLabelValues(p.provider, p.model).Add(float64(texts))
	p.logger.Debug("Embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Int("texts", texts),
		zap.Int("total_tokens", tokens),
		zap.Duration("duration", time.Since(start)),
	)
}

// failed records err under its error class and returns it wrapped in ErrEmbedding.
func (p *InstrumentedEmbedder) failed(op string, err error, fields ...zap.Field) error {
	kind := errorKind(err)
	metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, kind).Inc()
	p.logger.Error("Embedding failed", append(fields,
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("error_type", kind),
		zap.Error(err),
	)...)
	return wrapEmbedding(op, err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errEmptyVector):
		return "empty_vector"
	case errors.Is(err, errZeroVector):
		return "zero_vector"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "inference"
	}
}

// wrapEmbedding puts ErrEmbedding in the chain once.
func wrapEmbedding(op string, err error) error {
	if errors.Is(err, domain.ErrEmbedding) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrEmbedding, err)
}
