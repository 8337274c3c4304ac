package ragdex

import "github.com/kailas-cloud/ragdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrUnsupportedFileType = domain.ErrUnsupportedFileType
	ErrExtractionFailed    = domain.ErrExtractionFailed
	ErrInvalidChunkConfig  = domain.ErrInvalidChunkConfig
	ErrEmbedding           = domain.ErrEmbedding
	ErrCollectionNotFound  = domain.ErrCollectionNotFound
	ErrIndexUnavailable    = domain.ErrIndexUnavailable
	ErrDimensionMismatch   = domain.ErrDimensionMismatch
	ErrSchemaMismatch      = domain.ErrSchemaMismatch
	ErrInvalidRequest      = domain.ErrInvalidRequest
	ErrInvalidCollection   = domain.ErrInvalidCollection
)

// DimensionMismatchError carries the expected and actual vector sizes.
type DimensionMismatchError = domain.DimensionMismatchError
