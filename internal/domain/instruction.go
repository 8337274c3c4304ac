package domain

import (
	"context"
	"fmt"
)

// InstructionEmbedder prefixes every text with a model-specific instruction,
// such as "passage: " and "query: " for e5 models. Only the embedded text is
// prefixed; chunk text written to the index stays as extracted.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner. An empty instruction passes texts through.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed embeds instruction+text.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	res, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return res, nil
}

// BatchEmbed embeds instruction+text for every text.
func (e *InstructionEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	if e.instruction != "" {
		prefixed := make([]string, len(texts))
		for i, t := range texts {
			prefixed[i] = e.instruction + t
		}
		texts = prefixed
	}

	res, err := EmbedMany(ctx, e.inner, texts)
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("instruction batch embed: %w", err)
	}
	return res, nil
}
