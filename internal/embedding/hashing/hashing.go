// Package hashing is a local feature-hashing bag-of-words embedder.
// It needs no network or model files and is deterministic across processes.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// DefaultDimension matches all-MiniLM-L6-v2 so collections can switch providers.
const DefaultDimension = 384

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Embedder hashes tokens into a fixed number of signed buckets and L2-normalizes the result.
type Embedder struct {
	dimension int
	stopwords map[string]struct{}
}

// New creates a hashing embedder with the given output dimension.
func New(dimension int) (*Embedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hashing dimension must be positive, got %d: %w", dimension, domain.ErrEmbedding)
	}
	return &Embedder{dimension: dimension, stopwords: defaultStopwords()}, nil
}

// Dimension returns the length of produced vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("hashing embed: %w: %w", domain.ErrEmbedding, err)
	}
	vec, tokens := e.vector(text)
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: tokens, TotalTokens: tokens}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	out := make([][]float32, len(texts))
	var tokens int
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("hashing batch embed: %w: %w", domain.ErrEmbedding, err)
		}
		vec, n := e.vector(text)
		out[i] = vec
		tokens += n
	}
	return domain.BatchEmbeddingResult{Embeddings: out, PromptTokens: tokens, TotalTokens: tokens}, nil
}

// HealthCheck always succeeds; the model is in-process.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) vector(text string) ([]float32, int) {
	tokens := e.features(text)
	acc := make([]float64, e.dimension)
	for _, tok := range tokens {
		e.add(acc, tok)
	}

	norm := l2(acc)
	if norm == 0 && len(tokens) > 0 {
		// every token cancelled out in shared buckets
		e.add(acc, strings.Join(tokens, " "))
		norm = 1
	}

	vec := make([]float32, e.dimension)
	if norm == 0 {
		return vec, len(tokens)
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, len(tokens)
}

func (e *Embedder) add(acc []float64, tok string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tok))
	sum := h.Sum64()
	bucket := sum % uint64(e.dimension)
	// top bit picks the sign so colliding tokens tend to cancel instead of pile up
	if sum>>63 == 1 {
		acc[bucket]--
	} else {
		acc[bucket]++
	}
}

func l2(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// features returns the content words of text. Text made only of stopwords
// falls back to those words and text without any word to itself, so only
// the empty string maps to the zero vector.
func (e *Embedder) features(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	content := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := e.stopwords[w]; !stop {
			content = append(content, w)
		}
	}
	switch {
	case len(content) > 0:
		return content
	case len(words) > 0:
		return words
	case text != "":
		return []string{text}
	default:
		return nil
	}
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such",
		"into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off",
		"own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "how", "do", "does", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
