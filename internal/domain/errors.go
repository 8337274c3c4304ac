package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFileType signals a document extension outside the known set.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrExtractionFailed signals a known file type whose bytes could not be decoded.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrInvalidChunkConfig signals a chunk size/overlap pair that cannot make progress.
	ErrInvalidChunkConfig = errors.New("invalid chunk config")
	// ErrEmbedding signals an embedding model failure (init, inference or shape).
	ErrEmbedding = errors.New("embedding error")
	// ErrCollectionNotFound signals a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrIndexUnavailable signals that the vector index could not be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrDimensionMismatch signals a vector whose length differs from the collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrSchemaMismatch signals an existing collection created with a different metric.
	ErrSchemaMismatch = errors.New("collection schema mismatch")
	// ErrInvalidRequest signals malformed caller input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidCollection signals an invalid collection definition.
	ErrInvalidCollection = errors.New("invalid collection")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the expected and actual sizes.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch.Error(), e.Expected, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(expected, got int) error {
	return &DimensionMismatchError{Expected: expected, Got: got}
}
