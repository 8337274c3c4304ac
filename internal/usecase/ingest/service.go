// Package ingest runs the extract, chunk, embed and upsert pipeline.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/metadata"
	"github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Metadata keys and defaults used by ingestion.
const (
	KeySource         = "source"
	DefaultTextSource = "cms"
	ItemSeparator     = "\n\n"
)

// Values of the kind label on ingestion metrics and logs.
const (
	kindDocument = "document"
	kindTexts    = "texts"
)

// Report summarizes a single ingestion.
type Report struct {
	Chunks   int
	PointIDs []string
}

// Service ingests documents and plain texts into one collection.
type Service struct {
	extractor  Extractor
	embedder   Embedder
	index      Index
	collection string
	policy     chunk.Policy
	textSource string
}

// New creates an ingestion service writing into collection.
func New(extractor Extractor, embedder Embedder, index Index, collection string, policy chunk.Policy) *Service {
	return &Service{
		extractor:  extractor,
		embedder:   embedder,
		index:      index,
		collection: collection,
		policy:     policy,
		textSource: DefaultTextSource,
	}
}

// WithTextSource sets the "source" metadata value attached to imported texts.
func (s *Service) WithTextSource(source string) *Service {
	if source != "" {
		s.textSource = source
	}
	return s
}

// IngestDocument extracts text from raw by file extension, then chunks, embeds and stores it.
// Every chunk carries {filename, file_type}.
func (s *Service) IngestDocument(ctx context.Context, filename string, raw []byte) (Report, error) {
	text, md, err := s.extractor.Extract(ctx, filename, raw)
	if err != nil {
		return Report{}, fmt.Errorf("ingest document: %w", err)
	}
	ctx = logger.With(ctx, zap.String("filename", filename))
	return s.ingest(ctx, kindDocument, text, md)
}

// IngestTexts joins items with a blank line and ingests them as one text tagged with the text source.
func (s *Service) IngestTexts(ctx context.Context, items []string) (Report, error) {
	md := metadata.FromStrings(map[string]string{KeySource: s.textSource})
	return s.ingest(ctx, kindTexts, strings.Join(items, ItemSeparator), md)
}

func (s *Service) ingest(ctx context.Context, kind, text string, md metadata.Metadata) (Report, error) {
	log := logger.FromContext(ctx)

	chunks := s.policy.Split(text)
	if len(chunks) == 0 {
		log.Debug("Nothing to ingest", zap.String("kind", kind))
		return Report{}, nil
	}
	texts := chunk.Texts(chunks)

	start := time.Now()
	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return Report{}, fmt.Errorf("embed %d chunks: %w", len(texts), err)
	}
	if len(res.Embeddings) != len(texts) {
		return Report{}, fmt.Errorf("embed %d chunks: got %d vectors: %w",
			len(texts), len(res.Embeddings), domain.ErrEmbedding)
	}
	embedDuration := time.Since(start)

	ids, err := s.index.Upsert(ctx, s.collection, texts, res.Embeddings, md)
	if err != nil {
		return Report{}, fmt.Errorf("store %d chunks: %w", len(texts), err)
	}

	metrics.ChunksIngestedTotal.WithLabelValues(kind).Add(float64(len(texts)))
	log.Info("Ingested",
		zap.String("kind", kind),
		zap.String("collection", s.collection),
		zap.Int("chunks", len(texts)),
		zap.Int("tokens", res.TotalTokens),
		zap.Duration("embed_duration", embedDuration),
		zap.Duration("duration", time.Since(start)),
	)

	return Report{Chunks: len(texts), PointIDs: ids}, nil
}
