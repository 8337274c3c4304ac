// Package chunk splits extracted text into overlapping fixed-size character windows.
package chunk

import (
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Defaults used when no policy is configured.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Chunk is a contiguous window of a document's text.
// Offset and length are measured in characters (runes), not bytes.
type Chunk struct {
	Index  int
	Offset int
	Text   string
}

// Policy is a validated size/overlap pair.
type Policy struct {
	size    int
	overlap int
}

// NewPolicy validates size and overlap: size > 0 and 0 <= overlap < size.
func NewPolicy(size, overlap int) (Policy, error) {
	if size <= 0 {
		return Policy{}, fmt.Errorf("chunk size must be positive, got %d: %w", size, domain.ErrInvalidChunkConfig)
	}
	if overlap < 0 {
		return Policy{}, fmt.Errorf("chunk overlap must be non-negative, got %d: %w",
			overlap, domain.ErrInvalidChunkConfig)
	}
	if overlap >= size {
		return Policy{}, fmt.Errorf("chunk overlap %d must be less than size %d: %w",
			overlap, size, domain.ErrInvalidChunkConfig)
	}
	return Policy{size: size, overlap: overlap}, nil
}

// DefaultPolicy returns the 1000/200 policy.
func DefaultPolicy() Policy {
	return Policy{size: DefaultSize, overlap: DefaultOverlap}
}

// Size returns the window size.
func (p Policy) Size() int { return p.size }

// Overlap returns the number of characters shared by consecutive chunks.
func (p Policy) Overlap() int { return p.overlap }

// Stride returns the distance between consecutive chunk starts.
func (p Policy) Stride() int { return p.size - p.overlap }

// Split windows text into chunks. Each chunk starts Stride characters after the
// previous one; the last chunk is truncated, never padded. Empty text yields nil.
func (p Policy) Split(text string) []Chunk {
	if text == "" || p.size <= 0 {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	stride := p.Stride()

	chunks := make([]Chunk, 0, (n+stride-1)/stride)
	for start := 0; start < n; start += stride {
		end := min(start+p.size, n)
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Offset: start,
			Text:   string(runes[start:end]),
		})
	}
	return chunks
}

// Texts projects chunk texts in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
