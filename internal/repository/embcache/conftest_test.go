package embcache

import (
	"context"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchCalls int
	batchTexts []string
	healthErr  error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchTexts = append(m.batchTexts, texts...)
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

func (m *mockEmbedder) HealthCheck(context.Context) error { return m.healthErr }

// mockHashStore implements the consumer interface for tests.
type mockHashStore struct {
	getHashFn   func(ctx context.Context, key string) (map[string]string, error)
	putHashesFn func(ctx context.Context, hashes ...db.Hash) error
}

func (m *mockHashStore) GetHash(ctx context.Context, key string) (map[string]string, error) {
	if m.getHashFn != nil {
		return m.getHashFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockHashStore) PutHashes(ctx context.Context, hashes ...db.Hash) error {
	if m.putHashesFn != nil {
		return m.putHashesFn(ctx, hashes...)
	}
	return nil
}

func cached(vec []float32) map[string]string {
	return map[string]string{vectorField: db.EncodeVector(vec)}
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *mockHashStore) {
	t.Helper()
	ms := &mockHashStore{}
	ce := New(inner, ms, "ragdex:", "minilm", nil, nil)
	return ce, ms
}
