package collection

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Metric is the similarity metric of a collection.
type Metric string

const (
	// MetricCosine is cosine similarity (default).
	MetricCosine Metric = "cosine"
	// MetricL2 is Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricIP is inner product.
	MetricIP Metric = "ip"
)

// IsValid checks if the metric is supported.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricL2 || m == MetricIP
}

// Algorithm is the vector index algorithm.
type Algorithm string

const (
	// AlgorithmHNSW is approximate nearest neighbour search (default).
	AlgorithmHNSW Algorithm = "hnsw"
	// AlgorithmFlat is exact brute-force search.
	AlgorithmFlat Algorithm = "flat"
)

// IsValid checks if the algorithm is supported.
func (a Algorithm) IsValid() bool {
	return a == AlgorithmHNSW || a == AlgorithmFlat
}

// Collection is a named vector collection with a fixed schema (immutable value object).
type Collection struct {
	name      string
	dimension int
	metric    Metric
	algorithm Algorithm
	createdAt int64
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required: %w", domain.ErrInvalidCollection)
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64): %w", domain.ErrInvalidCollection)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores and hyphens: %w",
			domain.ErrInvalidCollection)
	}
	return nil
}

// New validates and creates a Collection.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. Dimension: > 0. Empty metric/algorithm take defaults.
func New(name string, dimension int, metric Metric, algorithm Algorithm) (Collection, error) {
	if err := validateName(name); err != nil {
		return Collection{}, err
	}
	if dimension <= 0 {
		return Collection{}, fmt.Errorf("vector dimension must be positive: %w", domain.ErrInvalidCollection)
	}
	if metric == "" {
		metric = MetricCosine
	}
	if !metric.IsValid() {
		return Collection{}, fmt.Errorf("invalid metric %q: %w", metric, domain.ErrInvalidCollection)
	}
	if algorithm == "" {
		algorithm = AlgorithmHNSW
	}
	if !algorithm.IsValid() {
		return Collection{}, fmt.Errorf("invalid algorithm %q: %w", algorithm, domain.ErrInvalidCollection)
	}

	return Collection{
		name:      name,
		dimension: dimension,
		metric:    metric,
		algorithm: algorithm,
		createdAt: time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(name string, dimension int, metric Metric, algorithm Algorithm, createdAt int64) Collection {
	if metric == "" {
		metric = MetricCosine
	}
	if algorithm == "" {
		algorithm = AlgorithmHNSW
	}
	return Collection{
		name:      name,
		dimension: dimension,
		metric:    metric,
		algorithm: algorithm,
		createdAt: createdAt,
	}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Dimension returns the vector dimension.
func (c Collection) Dimension() int { return c.dimension }

// Metric returns the similarity metric.
func (c Collection) Metric() Metric { return c.metric }

// Algorithm returns the vector index algorithm.
func (c Collection) Algorithm() Algorithm { return c.algorithm }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// Compatible reports whether other describes the same schema as c.
// Returns DimensionMismatchError or ErrSchemaMismatch otherwise.
func (c Collection) Compatible(other Collection) error {
	if c.dimension != other.dimension {
		return domain.NewDimensionMismatch(c.dimension, other.dimension)
	}
	if c.metric != other.metric {
		return fmt.Errorf("collection %s uses metric %s, requested %s: %w",
			c.name, c.metric, other.metric, domain.ErrSchemaMismatch)
	}
	return nil
}

// Similarity converts a raw index distance into a score where higher is more similar.
// cosine and ip distances are 1-x, clamped to [0, 1] for cosine; l2 maps to 1/(1+d).
func (m Metric) Similarity(distance float64) float64 {
	switch m {
	case MetricL2:
		if distance < 0 {
			distance = 0
		}
		return 1.0 / (1.0 + distance)
	case MetricIP:
		return 1.0 - distance
	default:
		return min(1, max(0, 1.0-distance))
	}
}
