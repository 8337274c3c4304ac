// Package retrieval holds ranked search hits and the context assembler.
package retrieval

import (
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain/metadata"
)

// ContextSeparator joins hit texts in the assembled context.
const ContextSeparator = "\n\n"

// Hit is a single ranked chunk returned by the vector index (read-only value object).
type Hit struct {
	id       string
	text     string
	score    float64
	metadata metadata.Metadata
}

// NewHit creates a Hit.
func NewHit(id, text string, score float64, md metadata.Metadata) Hit {
	return Hit{id: id, text: text, score: score, metadata: md}
}

// ID returns the point identifier.
func (h Hit) ID() string { return h.id }

// Text returns the chunk text.
func (h Hit) Text() string { return h.text }

// Score returns the similarity score (higher is more similar).
func (h Hit) Score() float64 { return h.score }

// Metadata returns the metadata stored with the chunk.
func (h Hit) Metadata() metadata.Metadata { return h.metadata }

// Result is the assembled answer context plus the hits it was built from.
type Result struct {
	Context string
	Sources []Hit
}

// Assemble concatenates the texts of hits in rank order. Sources are returned unchanged.
func Assemble(hits []Hit) Result {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.text
	}
	sources := hits
	if sources == nil {
		sources = []Hit{}
	}
	return Result{
		Context: strings.Join(texts, ContextSeparator),
		Sources: sources,
	}
}
