package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DistanceMetric is the DISTANCE_METRIC of a vector attribute.
type DistanceMetric string

const (
	DistanceL2     DistanceMetric = "L2"     // squared Euclidean
	DistanceIP     DistanceMetric = "IP"     // 1 - dot product
	DistanceCosine DistanceMetric = "COSINE" // 1 - cosine similarity
)

// VectorAlgorithm is the index structure behind a vector attribute.
type VectorAlgorithm string

const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// VectorField is the single indexed attribute of a point hash. Everything else
// a point carries lives in unindexed hash fields and is only returned by search.
type VectorField struct {
	Field     string // hash field holding the FLOAT32 blob
	Alias     string // attribute name used in queries, Field when empty
	Dim       int
	Metric    DistanceMetric
	Algorithm VectorAlgorithm

	// HNSW graph parameters; zero leaves the server default.
	M              int
	EFConstruction int
}

// Attr returns the name KNN queries address.
func (v VectorField) Attr() string {
	if v.Alias != "" {
		return v.Alias
	}
	return v.Field
}

// IndexDefinition is an FT index over the hashes under Prefixes.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Vector   VectorField
}

// Validate checks the definition before it reaches a backend.
func (d *IndexDefinition) Validate() error {
	switch {
	case d.Name == "":
		return errors.New("index name is required")
	case !IsValidIdentifier(d.Name):
		return fmt.Errorf("index name %q contains invalid characters", d.Name)
	case d.Vector.Field == "":
		return errors.New("vector field is required")
	case d.Vector.Dim <= 0:
		return fmt.Errorf("vector field %s requires a positive DIM, got %d", d.Vector.Field, d.Vector.Dim)
	}
	switch d.Vector.Metric {
	case DistanceL2, DistanceIP, DistanceCosine:
	default:
		return fmt.Errorf("unsupported distance metric %q", d.Vector.Metric)
	}
	switch d.Vector.Algorithm {
	case VectorHNSW, VectorFlat:
	default:
		return fmt.Errorf("unsupported vector algorithm %q", d.Vector.Algorithm)
	}
	if d.Vector.M < 0 || d.Vector.EFConstruction < 0 {
		return errors.New("HNSW parameters must not be negative")
	}
	return nil
}

// String renders the definition roughly as FT.CREATE for logs.
func (d *IndexDefinition) String() string {
	var b strings.Builder
	b.WriteString("FT.CREATE " + d.Name + " ON HASH")
	if len(d.Prefixes) > 0 {
		b.WriteString(" PREFIX " + strconv.Itoa(len(d.Prefixes)) + " " + strings.Join(d.Prefixes, " "))
	}
	b.WriteString(" SCHEMA " + d.Vector.Field)
	if d.Vector.Alias != "" {
		b.WriteString(" AS " + d.Vector.Alias)
	}
	fmt.Fprintf(&b, " VECTOR %s DIM %d %s", d.Vector.Algorithm, d.Vector.Dim, d.Vector.Metric)
	return b.String()
}

// IsValidIdentifier reports whether s is non-empty and limited to [a-zA-Z0-9_:-].
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
