package index

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain/collection"
)

// collectionToHash renders a collection as its metadata hash.
func collectionToHash(col collection.Collection) map[string]string {
	return map[string]string{
		"name":       col.Name(),
		"dimension":  strconv.Itoa(col.Dimension()),
		"metric":     string(col.Metric()),
		"algorithm":  string(col.Algorithm()),
		"created_at": strconv.FormatInt(col.CreatedAt(), 10),
	}
}

// collectionFromHash hydrates a domain Collection from its metadata hash.
func collectionFromHash(m map[string]string) (collection.Collection, error) {
	dim, err := strconv.Atoi(m["dimension"])
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid dimension: %w", err)
	}

	var createdAt int64
	if s := m["created_at"]; s != "" {
		createdAt, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return collection.Collection{}, fmt.Errorf("invalid created_at: %w", err)
		}
	}

	metric := collection.Metric(m["metric"])
	if metric == "" {
		metric = collection.MetricCosine
	}
	algo := collection.Algorithm(m["algorithm"])
	if algo == "" {
		algo = collection.AlgorithmHNSW
	}

	return collection.Reconstruct(m["name"], dim, metric, algo, createdAt), nil
}

func distanceMetric(m collection.Metric) db.DistanceMetric {
	switch m {
	case collection.MetricL2:
		return db.DistanceL2
	case collection.MetricIP:
		return db.DistanceIP
	default:
		return db.DistanceCosine
	}
}

// buildIndex creates the FT index definition over a collection's point hashes.
func (r *Repo) buildIndex(col collection.Collection) (*db.IndexDefinition, error) {
	b := db.NewIndex(r.indexName(col.Name())).Prefix(r.pointPrefix(col.Name()))

	metric := distanceMetric(col.Metric())
	if col.Algorithm() == collection.AlgorithmFlat {
		b = b.Flat(fieldVector, col.Dimension(), metric)
	} else {
		b = b.HNSW(fieldVector, col.Dimension(), metric, r.hnsw.M, r.hnsw.EFConstruct)
	}

	def, err := b.As(vectorAttr).Build()
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return def, nil
}
