package query

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/retrieval"
)

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index runs nearest-neighbour search over a collection.
type Index interface {
	Search(ctx context.Context, name string, vector []float32, topK int) ([]retrieval.Hit, error)
}
