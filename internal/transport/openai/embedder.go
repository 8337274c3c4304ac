// Package openai embeds texts through any OpenAI-compatible /embeddings endpoint.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string // e.g. https://api.openai.com/v1
	Model      string
	Dimensions int // 0 keeps the model's native size
	User       string
	Provider   string // metrics label, "openai" when empty
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Embedder calls the embeddings API. Every error it returns wraps domain.ErrEmbedding.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// NewEmbedder creates an embedder for cfg.
func NewEmbedder(cfg *Config) *Embedder {
	cc := openai.DefaultConfig(cfg.APIKey)
	cc.BaseURL = cfg.BaseURL
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	e := &Embedder{
		client:     openai.NewClientWithConfig(cc),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     cfg.Logger,
	}
	if e.provider == "" {
		e.provider = "openai"
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Embed embeds one text.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed embeds texts in a single request. Vectors are returned in input
// order whatever order the provider lists them in.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		e.failed("api_error")
		e.logger.Warn("Embedding request failed",
			zap.String("provider", e.provider),
			zap.Int("texts", len(texts)),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return domain.BatchEmbeddingResult{}, apiError(err)
	}

	vectors, kind, err := place(resp.Data, len(texts))
	if err != nil {
		e.failed(kind)
		return domain.BatchEmbeddingResult{}, err
	}

	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(elapsed.Seconds())
	if u := resp.Usage; u.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(u.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(u.TotalTokens))
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   vectors,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w: %w", domain.ErrEmbedding, err)
	}
	return nil
}

func (e *Embedder) failed(kind string) {
	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, kind).Inc()
}

// place orders data by its index field. Each of the n slots must be filled
// exactly once with a non-empty vector; kind names the violation for metrics.
func place(data []openai.Embedding, n int) ([][]float32, string, error) {
	if len(data) != n {
		return nil, "count_mismatch", fmt.Errorf("%w: %d vectors for %d texts", domain.ErrEmbedding, len(data), n)
	}
	out := make([][]float32, n)
	for _, d := range data {
		switch {
		case d.Index < 0 || d.Index >= n:
			return nil, "bad_index", fmt.Errorf("%w: vector index %d out of range", domain.ErrEmbedding, d.Index)
		case out[d.Index] != nil:
			return nil, "bad_index", fmt.Errorf("%w: vector index %d repeated", domain.ErrEmbedding, d.Index)
		case len(d.Embedding) == 0:
			return nil, "empty_response", fmt.Errorf("%w: empty vector at index %d", domain.ErrEmbedding, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, "", nil
}

// apiError turns a client error into a readable ErrEmbedding. Provider bodies
// are either OpenAI style {"error":{"message"}} or {"detail": "..."}.
func apiError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := string(reqErr.Body)
		if d := detail(reqErr.Body); d != "" {
			msg = d
		}
		return fmt.Errorf("embedding API status %d: %s: %w", reqErr.HTTPStatusCode, msg, domain.ErrEmbedding)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API status %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbedding)
	}

	return fmt.Errorf("embedding request: %w: %w", domain.ErrEmbedding, err)
}

func detail(body []byte) string {
	var b struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &b) != nil {
		return ""
	}
	return b.Detail
}
