package ingest

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/metadata"
)

// Extractor turns raw document bytes into text plus document metadata.
type Extractor interface {
	Extract(ctx context.Context, filename string, raw []byte) (string, metadata.Metadata, error)
}

// Embedder vectorizes chunk texts in input order.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index stores chunk points in a collection.
type Index interface {
	Upsert(ctx context.Context, name string, texts []string, vectors [][]float32, md metadata.Metadata) ([]string, error)
}
