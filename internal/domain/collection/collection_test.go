package collection

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

func TestNew_Valid(t *testing.T) {
	before := time.Now().UnixMilli()

	col, err := New("docs", 384, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := time.Now().UnixMilli()

	if col.Name() != "docs" {
		t.Errorf("Name() = %q, want %q", col.Name(), "docs")
	}
	if col.Dimension() != 384 {
		t.Errorf("Dimension() = %d, want 384", col.Dimension())
	}
	if col.Metric() != MetricCosine {
		t.Errorf("Metric() = %q, want cosine", col.Metric())
	}
	if col.Algorithm() != AlgorithmHNSW {
		t.Errorf("Algorithm() = %q, want hnsw", col.Algorithm())
	}
	if col.CreatedAt() < before || col.CreatedAt() > after {
		t.Errorf("CreatedAt() = %d, want between %d and %d", col.CreatedAt(), before, after)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		colName   string
		dim       int
		metric    Metric
		algorithm Algorithm
	}{
		{"empty name", "", 384, "", ""},
		{"long name", strings.Repeat("a", 65), 384, "", ""},
		{"bad chars", "my docs", 384, "", ""},
		{"zero dim", "docs", 0, "", ""},
		{"negative dim", "docs", -1, "", ""},
		{"unknown metric", "docs", 384, "manhattan", ""},
		{"unknown algorithm", "docs", 384, "", "ivf"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.colName, tc.dim, tc.metric, tc.algorithm)
			if !errors.Is(err, domain.ErrInvalidCollection) {
				t.Fatalf("expected ErrInvalidCollection, got %v", err)
			}
		})
	}
}

func TestReconstruct_Defaults(t *testing.T) {
	col := Reconstruct("docs", 8, "", "", 1700000000000)
	if col.Metric() != MetricCosine || col.Algorithm() != AlgorithmHNSW {
		t.Errorf("unexpected defaults: %q %q", col.Metric(), col.Algorithm())
	}
	if col.CreatedAt() != 1700000000000 {
		t.Errorf("CreatedAt() = %d", col.CreatedAt())
	}
}

func TestCompatible(t *testing.T) {
	base := Reconstruct("docs", 384, MetricCosine, AlgorithmHNSW, 1)

	if err := base.Compatible(Reconstruct("docs", 384, MetricCosine, AlgorithmFlat, 2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := base.Compatible(Reconstruct("docs", 768, MetricCosine, AlgorithmHNSW, 2))
	var dimErr *domain.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Expected != 384 || dimErr.Got != 768 {
		t.Errorf("unexpected mismatch: %+v", dimErr)
	}

	err = base.Compatible(Reconstruct("docs", 384, MetricL2, AlgorithmHNSW, 2))
	if !errors.Is(err, domain.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		metric   Metric
		distance float64
		want     float64
	}{
		{MetricCosine, 0, 1},
		{MetricCosine, 0.25, 0.75},
		{MetricCosine, 1.5, 0},
		{MetricIP, 0.2, 0.8},
		{MetricIP, 1.5, -0.5},
		{MetricL2, 0, 1},
		{MetricL2, 1, 0.5},
		{MetricL2, 3, 0.25},
	}
	for _, tc := range tests {
		got := tc.metric.Similarity(tc.distance)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s.Similarity(%v) = %v, want %v", tc.metric, tc.distance, got, tc.want)
		}
	}
}

func TestSimilarity_Monotonic(t *testing.T) {
	for _, m := range []Metric{MetricCosine, MetricIP, MetricL2} {
		if m.Similarity(0.1) < m.Similarity(0.4) {
			t.Errorf("%s: smaller distance must not score lower", m)
		}
	}
}
