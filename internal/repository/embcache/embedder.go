// Package embcache memoizes embedding vectors in the hash store so that
// re-ingested chunks and repeated questions skip the model.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
)

const vectorField = "v"

// store is the slice of db.Store the cache needs.
type store interface {
	GetHash(ctx context.Context, key string) (map[string]string, error)
	PutHashes(ctx context.Context, hashes ...db.Hash) error
}

// CachedEmbedder wraps an embedder with a vector cache keyed by model and text.
// The cache is best effort: a store failure or a corrupt entry is a miss.
type CachedEmbedder struct {
	inner     domain.Embedder
	store     store
	keyPrefix string
	lookups   *prometheus.CounterVec
	logger    *zap.Logger
}

// New wraps inner. Keys look like "<prefix>emb:<model>:<sha256(text)>", so a
// model change never serves vectors of the old one. lookups counts "hit" and
// "miss" results and may be nil.
func New(
	inner domain.Embedder,
	s store,
	prefix, model string,
	lookups *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:     inner,
		store:     s,
		keyPrefix: prefix + "emb:" + model + ":",
		lookups:   lookups,
		logger:    logger,
	}
}

// Embed returns the cached vector for text or embeds it. Hits report zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := c.embed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed fills hits from the cache and embeds the remaining distinct texts
// in one call to the inner embedder. Output order matches input order.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: [][]float32{}}, nil
	}
	return c.embed(ctx, texts)
}

// HealthCheck forwards to the inner embedder if it has a health check.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := c.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("inner health: %w", err)
	}
	return nil
}

// pending is a distinct uncached text and every input position it occupies.
type pending struct {
	key       string
	text      string
	positions []int
}

func (c *CachedEmbedder) embed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := make([][]float32, len(texts))
	todo := c.lookup(ctx, texts, out)
	if len(todo) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	missTexts := make([]string, len(todo))
	for i, p := range todo {
		missTexts[i] = p.text
	}
	res, err := domain.EmbedMany(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(missTexts), err)
	}
	if len(res.Embeddings) != len(todo) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: got %d vectors for %d texts",
			domain.ErrEmbedding, len(res.Embeddings), len(todo))
	}

	fresh := make([]db.Hash, 0, len(todo))
	for i, p := range todo {
		vec := res.Embeddings[i]
		for _, pos := range p.positions {
			out[pos] = vec
		}
		if len(vec) > 0 {
			fresh = append(fresh, db.Hash{Key: p.key, Fields: map[string]string{vectorField: db.EncodeVector(vec)}})
		}
	}
	if err := c.store.PutHashes(ctx, fresh...); err != nil {
		c.logger.Warn("Failed to cache embeddings", zap.Int("count", len(fresh)), zap.Error(err))
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// lookup fills out with cached vectors and returns the distinct texts still
// missing, in first-seen order. Every input position counts as one lookup.
func (c *CachedEmbedder) lookup(ctx context.Context, texts []string, out [][]float32) []*pending {
	var todo []*pending
	byKey := make(map[string]*pending)
	hits := 0

	for i, text := range texts {
		key := c.cacheKey(text)
		if p, ok := byKey[key]; ok {
			p.positions = append(p.positions, i)
			continue
		}
		if vec, ok := c.get(ctx, key); ok {
			out[i] = vec
			hits++
			continue
		}
		p := &pending{key: key, text: text, positions: []int{i}}
		byKey[key] = p
		todo = append(todo, p)
	}

	// A repeated cached text is read again and counts as a hit; a repeated
	// uncached text counts as a miss but is embedded once.
	c.count("hit", hits)
	c.count("miss", len(texts)-hits)
	return todo
}

func (c *CachedEmbedder) count(result string, n int) {
	if c.lookups != nil && n > 0 {
		c.lookups.WithLabelValues(result).Add(float64(n))
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.keyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) get(ctx context.Context, key string) ([]float32, bool) {
	fields, err := c.store.GetHash(ctx, key)
	if err != nil {
		c.logger.Warn("Failed to read cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	blob := fields[vectorField]
	if blob == "" {
		return nil, false
	}
	vec, err := db.DecodeVector(blob)
	if err != nil {
		c.logger.Warn("Discarding corrupt cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}
