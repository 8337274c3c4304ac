package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ragdex/internal/db/memory"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/collection"
	"github.com/kailas-cloud/ragdex/internal/domain/metadata"
	"github.com/kailas-cloud/ragdex/internal/embedding/hashing"
	"github.com/kailas-cloud/ragdex/internal/extract"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/repository/index"
	"github.com/kailas-cloud/ragdex/internal/usecase/query"
)

// --- Mocks ---

type mockExtractor struct {
	text string
	md   metadata.Metadata
	err  error
}

func (m *mockExtractor) Extract(_ context.Context, _ string, _ []byte) (string, metadata.Metadata, error) {
	return m.text, m.md, m.err
}

type mockEmbedder struct {
	err    error
	short  bool
	calls  int
	inputs []string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	m.inputs = texts
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: n}, nil
}

type mockIndex struct {
	err     error
	calls   int
	name    string
	texts   []string
	vectors [][]float32
	md      metadata.Metadata
}

func (m *mockIndex) Upsert(
	_ context.Context, name string, texts []string, vectors [][]float32, md metadata.Metadata,
) ([]string, error) {
	m.calls++
	m.name, m.texts, m.vectors, m.md = name, texts, vectors, md
	if m.err != nil {
		return nil, m.err
	}
	ids := make([]string, len(texts))
	for i := range ids {
		ids[i] = "id"
	}
	return ids, nil
}

func mustPolicy(t *testing.T, size, overlap int) chunk.Policy {
	t.Helper()
	p, err := chunk.NewPolicy(size, overlap)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return p
}

// --- Tests ---

func TestIngestDocument(t *testing.T) {
	ext := &mockExtractor{
		text: strings.Repeat("x", 25),
		md:   metadata.FromStrings(map[string]string{"filename": "a.txt", "file_type": "txt"}),
	}
	emb := &mockEmbedder{}
	idx := &mockIndex{}
	svc := New(ext, emb, idx, "docs", mustPolicy(t, 10, 2))

	rep, err := svc.IngestDocument(context.Background(), "a.txt", []byte("ignored"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// starts 0, 8, 16, 24
	if rep.Chunks != 4 || len(rep.PointIDs) != 4 {
		t.Errorf("report = %+v, want 4 chunks", rep)
	}
	if emb.calls != 1 {
		t.Errorf("expected one batch embed call, got %d", emb.calls)
	}
	if idx.name != "docs" || len(idx.texts) != 4 || len(idx.vectors) != 4 {
		t.Errorf("upsert = %s %d/%d", idx.name, len(idx.texts), len(idx.vectors))
	}
	if idx.texts[3] != "x" {
		t.Errorf("last chunk = %q, want truncated window", idx.texts[3])
	}
	if idx.md.String("filename") != "a.txt" || idx.md.String("file_type") != "txt" {
		t.Errorf("chunk metadata = %v", idx.md.Map())
	}
}

func TestIngestDocument_ExtractionError(t *testing.T) {
	for _, sentinel := range []error{domain.ErrUnsupportedFileType, domain.ErrExtractionFailed} {
		emb := &mockEmbedder{}
		svc := New(&mockExtractor{err: sentinel}, emb, &mockIndex{}, "docs", chunk.DefaultPolicy())

		_, err := svc.IngestDocument(context.Background(), "a.bin", nil)
		if !errors.Is(err, sentinel) {
			t.Errorf("expected %v, got %v", sentinel, err)
		}
		if emb.calls != 0 {
			t.Error("embedder must not run after an extraction failure")
		}
	}
}

func TestIngest_EmptyTextSkipsPipeline(t *testing.T) {
	emb := &mockEmbedder{}
	idx := &mockIndex{}
	svc := New(&mockExtractor{}, emb, idx, "docs", chunk.DefaultPolicy())

	rep, err := svc.IngestDocument(context.Background(), "empty.txt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Chunks != 0 {
		t.Errorf("chunks = %d, want 0", rep.Chunks)
	}
	if emb.calls != 0 || idx.calls != 0 {
		t.Errorf("zero chunks must not call embedder (%d) or index (%d)", emb.calls, idx.calls)
	}

	rep, err = svc.IngestTexts(context.Background(), nil)
	if err != nil || rep.Chunks != 0 {
		t.Errorf("IngestTexts(nil) = %+v, %v", rep, err)
	}
}

func TestIngestTexts(t *testing.T) {
	emb := &mockEmbedder{}
	idx := &mockIndex{}
	svc := New(&mockExtractor{}, emb, idx, "docs", chunk.DefaultPolicy())

	rep, err := svc.IngestTexts(context.Background(), []string{"first item", "second item"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", rep.Chunks)
	}
	if emb.inputs[0] != "first item\n\nsecond item" {
		t.Errorf("joined text = %q", emb.inputs[0])
	}
	if idx.md.String(KeySource) != DefaultTextSource {
		t.Errorf("source = %q, want %q", idx.md.String(KeySource), DefaultTextSource)
	}
}

func TestIngest_CountsChunksByKind(t *testing.T) {
	docs := metrics.ChunksIngestedTotal.WithLabelValues(kindDocument)
	texts := metrics.ChunksIngestedTotal.WithLabelValues(kindTexts)
	docsBefore, textsBefore := testutil.ToFloat64(docs), testutil.ToFloat64(texts)

	ex := &mockExtractor{text: strings.Repeat("x", 1500), md: metadata.FromStrings(map[string]string{"filename": "a.txt"})}
	svc := New(ex, &mockEmbedder{}, &mockIndex{}, "docs", chunk.DefaultPolicy())
	ctx := context.Background()

	// 1500 chars, size 1000, stride 800: starts 0 and 800
	if _, err := svc.IngestDocument(ctx, "a.txt", nil); err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if _, err := svc.IngestTexts(ctx, []string{"one", "two"}); err != nil {
		t.Fatalf("IngestTexts: %v", err)
	}

	if got := testutil.ToFloat64(docs) - docsBefore; got != 2 {
		t.Errorf("document chunks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(texts) - textsBefore; got != 1 {
		t.Errorf("texts chunks = %v, want 1", got)
	}
}

func TestIngestTexts_CustomSource(t *testing.T) {
	idx := &mockIndex{}
	svc := New(&mockExtractor{}, &mockEmbedder{}, idx, "docs", chunk.DefaultPolicy()).WithTextSource("wiki")

	if _, err := svc.IngestTexts(context.Background(), []string{"text"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.md.String(KeySource) != "wiki" {
		t.Errorf("source = %q", idx.md.String(KeySource))
	}
}

func TestIngest_EmbeddingFailure(t *testing.T) {
	idx := &mockIndex{}
	emb := &mockEmbedder{err: domain.ErrEmbedding}
	svc := New(&mockExtractor{text: "hello"}, emb, idx, "docs", chunk.DefaultPolicy())

	_, err := svc.IngestDocument(context.Background(), "a.txt", nil)
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	if idx.calls != 0 {
		t.Error("nothing may be stored when embedding fails")
	}
}

func TestIngest_EmbeddingCountMismatch(t *testing.T) {
	idx := &mockIndex{}
	svc := New(&mockExtractor{text: "hello"}, &mockEmbedder{short: true}, idx, "docs", chunk.DefaultPolicy())

	_, err := svc.IngestDocument(context.Background(), "a.txt", nil)
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	if idx.calls != 0 {
		t.Error("nothing may be stored on a vector count mismatch")
	}
}

func TestIngest_IndexFailure(t *testing.T) {
	idx := &mockIndex{err: domain.ErrIndexUnavailable}
	svc := New(&mockExtractor{text: "hello"}, &mockEmbedder{}, idx, "docs", chunk.DefaultPolicy())

	_, err := svc.IngestDocument(context.Background(), "a.txt", nil)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

// --- End to end over the memory store ---

// topicText fills [0,3000) with four topics of 800, 800, 800 and 600 characters.
func topicText() string {
	topics := []struct {
		phrase string
		length int
	}{
		{"apple orchard ", 800},
		{"volcano magma ", 800},
		{"glacier ice ", 800},
		{"desert sand ", 600},
	}
	var b strings.Builder
	for _, tp := range topics {
		b.WriteString(strings.Repeat(tp.phrase, tp.length/len(tp.phrase)+1)[:tp.length])
	}
	return b.String()
}

func TestIngestAndQuery_EndToEnd(t *testing.T) {
	ctx := context.Background()

	emb, err := hashing.New(hashing.DefaultDimension)
	if err != nil {
		t.Fatalf("hashing.New: %v", err)
	}
	repo := index.New(memory.NewStore(), "ragdex:")
	col, err := collection.New("docs", emb.Dimension(), collection.MetricCosine, collection.AlgorithmHNSW)
	if err != nil {
		t.Fatalf("collection.New: %v", err)
	}
	if _, err := repo.EnsureCollection(ctx, col); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	text := topicText()
	if len([]rune(text)) != 3000 {
		t.Fatalf("fixture length = %d", len([]rune(text)))
	}

	policy := mustPolicy(t, 1000, 200)
	chunks := policy.Split(text)
	wantOffsets := []int{0, 800, 1600, 2400}
	if len(chunks) != len(wantOffsets) {
		t.Fatalf("chunks = %d, want %d", len(chunks), len(wantOffsets))
	}
	for i, c := range chunks {
		if c.Offset != wantOffsets[i] {
			t.Errorf("chunk %d offset = %d, want %d", i, c.Offset, wantOffsets[i])
		}
	}
	if got := len([]rune(chunks[3].Text)); got != 600 {
		t.Errorf("last chunk length = %d, want 600", got)
	}

	svc := New(extract.NewRegistry(nil), emb, repo, "docs", policy)
	rep, err := svc.IngestDocument(ctx, "topics.txt", []byte(text))
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if rep.Chunks != 4 {
		t.Fatalf("report chunks = %d, want 4", rep.Chunks)
	}

	res, err := query.New(emb, repo, "docs").Query(ctx, "volcano magma", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(res.Sources))
	}

	found := false
	for _, h := range res.Sources {
		if h.Text() == chunks[1].Text {
			found = true
		}
		if h.Metadata().String(extract.KeyFilename) != "topics.txt" {
			t.Errorf("hit metadata = %v", h.Metadata().Map())
		}
	}
	if !found {
		t.Error("chunk at offset 800 must rank in the top 3")
	}
	if !strings.HasPrefix(res.Context, res.Sources[0].Text()) {
		t.Error("context must start with the top hit")
	}
}
