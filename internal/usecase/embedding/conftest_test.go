package embedding

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// mockEmbedder is a batch-capable model. Without batchResult it returns
// result.Embedding for every text and scales the token counts.
type mockEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	batchResult *domain.BatchEmbeddingResult
	batchErr    error
	batchSizes  []int
	healthErr   error
}

func (m *mockEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.batchResult != nil {
		return *m.batchResult, nil
	}
	out := domain.BatchEmbeddingResult{
		Embeddings:   make([][]float32, len(texts)),
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}
	for i := range texts {
		out.Embeddings[i] = m.result.Embedding
	}
	return out, nil
}

func (m *mockEmbedder) HealthCheck(context.Context) error { return m.healthErr }

// singleEmbedder has no batch endpoint.
type singleEmbedder struct {
	result domain.EmbeddingResult
	calls  int
}

func (m *singleEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, nil
}
