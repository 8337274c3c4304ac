package ragdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/collection"
	"github.com/kailas-cloud/ragdex/internal/domain/retrieval"
	"github.com/kailas-cloud/ragdex/internal/embedding/hashing"
	"github.com/kailas-cloud/ragdex/internal/extract"
	"github.com/kailas-cloud/ragdex/internal/repository/embcache"
	"github.com/kailas-cloud/ragdex/internal/repository/index"
	embeddinguc "github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped in tests.
type ingestUseCase interface {
	IngestDocument(ctx context.Context, filename string, raw []byte) (ingestuc.Report, error)
	IngestTexts(ctx context.Context, items []string) (ingestuc.Report, error)
}

type queryUseCase interface {
	Query(ctx context.Context, question string, topK int) (retrieval.Result, error)
	DefaultTopK() int
}

// embedder is what both ingestion and queries consume.
type embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// Client is the ragdex SDK entry point.
type Client struct {
	store     db.Store
	ingestSvc ingestUseCase
	querySvc  queryUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client, connects to the database and ensures the collection exists.
// The provided context is used for the readiness check and collection setup.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("ragdex: database required (use WithValkey, WithRedis, WithURL or WithMemory)")
	}

	if err := extract.SetPDFLicense(cfg.pdfLicense); err != nil {
		return nil, fmt.Errorf("ragdex: %w", err)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("ragdex: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		if cfg.url == "" && len(cfg.addrs) == 0 {
			return nil, errors.New("ragdex: database address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			URL:      cfg.url,
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("ragdex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("ragdex: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	// Internal layers log through zap; SDK callers get slog via the observer.
	nop := zap.NewNop()

	policy, err := chunk.NewPolicy(cfg.chunkSize, cfg.chunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("ragdex: %w", err)
	}

	col, err := collection.New(cfg.collection, cfg.vectorDimensions,
		collection.Metric(cfg.metric), collection.Algorithm(cfg.algorithm))
	if err != nil {
		return nil, fmt.Errorf("ragdex: %w", err)
	}

	repo := index.New(store, cfg.keyPrefix).
		WithHNSW(index.HNSWConfig{M: cfg.hnswM, EFConstruct: cfg.hnswEF}).
		WithIdentity(index.Identity(cfg.identity))
	if _, err := repo.EnsureCollection(ctx, col); err != nil {
		return nil, fmt.Errorf("ragdex: ensure collection: %w", err)
	}

	provider := "custom"
	factory := func(context.Context) (domain.Embedder, error) {
		return adaptEmbedder(cfg.embedder), nil
	}
	if cfg.embedder == nil {
		provider = "hashing"
		factory = func(context.Context) (domain.Embedder, error) {
			e, err := hashing.New(cfg.vectorDimensions)
			if err != nil {
				return nil, fmt.Errorf("hashing embedder: %w", err)
			}
			return e, nil
		}
	}
	shared := embeddinguc.NewLazy(factory, nop)
	var emb embedder = embeddinguc.NewInstrumentedEmbedder(shared, provider, provider, cfg.maxBatchSize, nop)
	if cfg.embeddingCache {
		emb = embcache.New(emb, store, cfg.keyPrefix,
			fmt.Sprintf("%s-%d", provider, cfg.vectorDimensions), nil, nop)
	}

	querySvc := queryuc.New(emb, repo, col.Name())
	if cfg.defaultTopK > 0 || cfg.maxTopK > 0 {
		querySvc = querySvc.WithLimits(cfg.defaultTopK, cfg.maxTopK)
	}

	return &Client{
		store:     store,
		ingestSvc: ingestuc.New(extract.NewRegistry(nop), emb, repo, col.Name(), policy),
		querySvc:  querySvc,
		healthSvc: healthuc.New(store, shared),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, -1, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// IngestFile extracts text from raw (type chosen by the filename extension:
// .pdf, .docx, .csv, .txt), chunks it and stores one point per chunk.
func (c *Client) IngestFile(ctx context.Context, filename string, raw []byte) (rep IngestReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest.file", start, rep.Chunks, err) }()

	r, err := c.ingestSvc.IngestDocument(ctx, filename, raw)
	if err != nil {
		return IngestReport{}, fmt.Errorf("ingest file %s: %w", filename, err)
	}
	return IngestReport{Chunks: r.Chunks, PointIDs: r.PointIDs}, nil
}

// ImportTexts joins items into one text, chunks it and stores one point per chunk.
func (c *Client) ImportTexts(ctx context.Context, items []string) (rep IngestReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest.texts", start, rep.Chunks, err) }()

	r, err := c.ingestSvc.IngestTexts(ctx, items)
	if err != nil {
		return IngestReport{}, fmt.Errorf("import texts: %w", err)
	}
	return IngestReport{Chunks: r.Chunks, PointIDs: r.PointIDs}, nil
}

// Query returns up to topK chunks most similar to question.
// topK <= 0 selects the configured default.
func (c *Client) Query(ctx context.Context, question string, topK int) (res QueryResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, len(res.Sources), err) }()

	if topK <= 0 {
		topK = c.querySvc.DefaultTopK()
	}
	r, err := c.querySvc.Query(ctx, question, topK)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query: %w", err)
	}
	return queryResultFromDomain(r), nil
}
