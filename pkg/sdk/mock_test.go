package ragdex

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain/retrieval"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
)

// --- ingestUseCase mock ---

type mockIngestUC struct {
	documentFn func(ctx context.Context, filename string, raw []byte) (ingestuc.Report, error)
	textsFn    func(ctx context.Context, items []string) (ingestuc.Report, error)
}

func (m *mockIngestUC) IngestDocument(ctx context.Context, filename string, raw []byte) (ingestuc.Report, error) {
	return m.documentFn(ctx, filename, raw)
}

func (m *mockIngestUC) IngestTexts(ctx context.Context, items []string) (ingestuc.Report, error) {
	return m.textsFn(ctx, items)
}

// --- queryUseCase mock ---

type mockQueryUC struct {
	queryFn     func(ctx context.Context, question string, topK int) (retrieval.Result, error)
	defaultTopK int
}

func (m *mockQueryUC) Query(ctx context.Context, question string, topK int) (retrieval.Result, error) {
	return m.queryFn(ctx, question, topK)
}

func (m *mockQueryUC) DefaultTopK() int { return m.defaultTopK }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- embedders ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

// --- helpers ---

func testClient(ingest ingestUseCase, query queryUseCase, health healthUseCase) *Client {
	return &Client{
		ingestSvc: ingest,
		querySvc:  query,
		healthSvc: health,
	}
}
