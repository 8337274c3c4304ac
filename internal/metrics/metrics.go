// Package metrics owns the Prometheus collectors of the ragdex service.
// Collectors are package-level so that every layer can record without
// plumbing; main adds them to a registry once with Register.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ragdex"

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
}

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingTextsTotal,
		EmbeddingModelInitTotal,
		EmbeddingCacheTotal,
		ExtractionsTotal,
		ChunksIngestedTotal,
		IndexOperationsTotal,
		IndexOperationDuration,
		httpRequests,
		httpLatency,
		httpInFlight,
	}
}

// Register adds every ragdex collector to reg. Registering twice is a no-op.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var dup prometheus.AlreadyRegisteredError
			if errors.As(err, &dup) {
				continue
			}
			return fmt.Errorf("register collector: %w", err)
		}
	}
	return nil
}
