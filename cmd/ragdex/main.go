package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/config"
	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/collection"
	"github.com/kailas-cloud/ragdex/internal/embedding/hashing"
	"github.com/kailas-cloud/ragdex/internal/extract"
	logpkg "github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/repository/embcache"
	"github.com/kailas-cloud/ragdex/internal/repository/index"
	chiTransport "github.com/kailas-cloud/ragdex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/ragdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
	"github.com/kailas-cloud/ragdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragdex API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("collection", cfg.Collection.Name),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Bool("embedding_cache", cfg.Embedding.Cache),
	)

	if err := extract.SetPDFLicense(cfg.Extraction.PDFLicenseKey); err != nil {
		logger.Fatal("Invalid PDF license key", zap.Error(err))
	}
	logger.Info("PDF extraction", zap.Bool("layout_aware", cfg.Extraction.PDFLicenseKey != ""))

	store, err := newStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	// One shared model per process; built on first use.
	shared := embeddinguc.NewLazy(embeddingFactory(cfg.Embedding, logger), logger)
	docEmbedder := buildEmbedder(shared, store, cfg, cfg.Embedding.DocumentInstruction, logger)
	queryEmbedder := buildEmbedder(shared, store, cfg, cfg.Embedding.QueryInstruction, logger)

	repo := index.New(store, cfg.Storage.KeyPrefix).
		WithHNSW(index.HNSWConfig{
			M:           cfg.Collection.HNSWM,
			EFConstruct: cfg.Collection.HNSWEFConstruct,
		}).
		WithIdentity(index.Identity(cfg.Ingest.PointIdentity))

	col, err := collection.New(cfg.Collection.Name, cfg.Embedding.Dimensions,
		collection.Metric(cfg.Collection.Metric), collection.Algorithm(cfg.Collection.Algorithm))
	if err != nil {
		logger.Fatal("Invalid collection config", zap.Error(err))
	}
	if _, err := repo.EnsureCollection(ctx, col); err != nil {
		logger.Fatal("Failed to ensure collection", zap.String("collection", col.Name()), zap.Error(err))
	}
	logger.Info("Collection ready",
		zap.String("collection", col.Name()),
		zap.Int("dimensions", col.Dimension()),
		zap.String("metric", string(col.Metric())),
	)

	policy, err := chunk.NewPolicy(cfg.Chunking.Size, cfg.ChunkOverlap())
	if err != nil {
		logger.Fatal("Invalid chunking config", zap.Error(err))
	}

	// Create use case services
	ingestSvc := ingestuc.New(extract.NewRegistry(logger), docEmbedder, repo, col.Name(), policy).
		WithTextSource(cfg.Ingest.TextSource)
	querySvc := queryuc.New(queryEmbedder, repo, col.Name()).
		WithLimits(cfg.Query.DefaultTopK, cfg.Query.MaxTopK)
	healthSvc := healthuc.New(store, shared)

	server := chiTransport.NewServer(ingestSvc, querySvc, healthSvc, logger).
		WithMaxUploadBytes(int64(cfg.Ingest.MaxUploadMB) << 20)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEvent(logger))
	r.Use(metrics.HTTP)
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func newStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			URL:      cfg.URL,
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
			Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("%s store: %w", cfg.Driver, err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// embeddingFactory returns the constructor run by the shared lazy model.
func embeddingFactory(cfg config.EmbeddingConfig, logger *zap.Logger) embeddinguc.Factory {
	return func(context.Context) (domain.Embedder, error) {
		switch cfg.Provider {
		case "openai":
			return openaiEmb.NewEmbedder(&openaiEmb.Config{
				APIKey:     cfg.APIKey,
				BaseURL:    cfg.BaseURL,
				Model:      cfg.Model,
				Dimensions: cfg.Dimensions,
				Provider:   cfg.Provider,
				Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
				Logger:     logger,
			}), nil
		case "hashing":
			e, err := hashing.New(cfg.Dimensions)
			if err != nil {
				return nil, fmt.Errorf("hashing embedder: %w", err)
			}
			return e, nil
		default:
			return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
		}
	}
}

// buildEmbedder assembles the decorator chain: Lazy -> Instrumented -> [Cache] -> Instruction
func buildEmbedder(
	shared *embeddinguc.Lazy,
	store db.Store,
	cfg config.Config,
	instruction string,
	logger *zap.Logger,
) *domain.InstructionEmbedder {
	model := cfg.Embedding.Model
	if model == "" {
		model = cfg.Embedding.Provider
	}
	var emb domain.Embedder = embeddinguc.NewInstrumentedEmbedder(
		shared, cfg.Embedding.Provider, model, cfg.Embedding.MaxBatchSize, logger)
	if cfg.Embedding.Cache {
		emb = embcache.New(emb, store, cfg.Storage.KeyPrefix,
			fmt.Sprintf("%s-%d", model, cfg.Embedding.Dimensions), metrics.EmbeddingCacheTotal, logger)
	}
	return domain.NewInstructionEmbedder(emb, instruction)
}
