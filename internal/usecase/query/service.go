// Package query answers questions with the most similar stored chunks.
package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/retrieval"
	"github.com/kailas-cloud/ragdex/internal/logger"
)

// Default retrieval limits.
const (
	DefaultTopK = 5
	MaxTopK     = 100
)

// Service embeds a question, searches the collection and assembles the context.
type Service struct {
	embedder    Embedder
	index       Index
	collection  string
	defaultTopK int
	maxTopK     int
}

// New creates a query service over collection.
func New(embedder Embedder, index Index, collection string) *Service {
	return &Service{
		embedder:    embedder,
		index:       index,
		collection:  collection,
		defaultTopK: DefaultTopK,
		maxTopK:     MaxTopK,
	}
}

// WithLimits configures the default and maximum top_k.
func (s *Service) WithLimits(defaultTopK, maxTopK int) *Service {
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	if defaultTopK > 0 {
		s.defaultTopK = min(defaultTopK, s.maxTopK)
	}
	return s
}

// DefaultTopK returns the top_k used when a caller does not pass one.
func (s *Service) DefaultTopK() int { return s.defaultTopK }

// Query returns up to topK chunks most similar to question.
// topK <= 0 is rejected; values above the maximum are clamped.
func (s *Service) Query(ctx context.Context, question string, topK int) (retrieval.Result, error) {
	if strings.TrimSpace(question) == "" {
		return retrieval.Result{}, fmt.Errorf("question is empty: %w", domain.ErrInvalidRequest)
	}
	if topK <= 0 {
		return retrieval.Result{}, fmt.Errorf("top_k must be positive, got %d: %w", topK, domain.ErrInvalidRequest)
	}
	if topK > s.maxTopK {
		logger.FromContext(ctx).Debug("top_k clamped", zap.Int("requested", topK), zap.Int("max", s.maxTopK))
		topK = s.maxTopK
	}

	emb, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return retrieval.Result{}, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.index.Search(ctx, s.collection, emb.Embedding, topK)
	if err != nil {
		return retrieval.Result{}, fmt.Errorf("search %s: %w", s.collection, err)
	}

	return retrieval.Assemble(hits), nil
}
