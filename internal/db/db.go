// Package db defines the storage contract shared by the Valkey/Redis driver and
// the in-process memory store: plain hashes plus FT vector indexes over them.
package db

import (
	"context"
	"time"
)

// Store is everything the vector index gateway and the embedding cache need from a backend.
//
//nolint:interfacebloat // facade; consumers declare narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Hash is one key with the fields written to it.
type Hash struct {
	Key    string
	Fields map[string]string
}

// HashStore reads and writes whole hashes.
// PutHashes merges fields into existing hashes; GetHash on a missing key returns an empty map.
type HashStore interface {
	PutHashes(ctx context.Context, hashes ...Hash) error
	GetHash(ctx context.Context, key string) (map[string]string, error)
	DeleteKeys(ctx context.Context, keys ...string) error
}

// IndexManager creates FT indexes and probes for them.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs KNN queries against an FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
