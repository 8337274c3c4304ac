// Package index is the vector index gateway: collection schema, point upserts and KNN search
// over FT indexes.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/collection"
	"github.com/kailas-cloud/ragdex/internal/domain/metadata"
	"github.com/kailas-cloud/ragdex/internal/domain/retrieval"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// store is the consumer interface for the gateway (ISP).
type store interface {
	PutHashes(ctx context.Context, hashes ...db.Hash) error
	GetHash(ctx context.Context, key string) (map[string]string, error)
	DeleteKeys(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Identity selects how point ids are assigned.
type Identity string

const (
	// IdentityRandom assigns a fresh UUID per point; re-ingestion appends.
	IdentityRandom Identity = "random"
	// IdentityContent derives the id from collection and payload; re-ingestion overwrites.
	IdentityContent Identity = "content"
)

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements the vector index gateway used by the ingest and query use cases.
type Repo struct {
	store    store
	prefix   string
	hnsw     HNSWConfig
	identity Identity
	newID    func() string

	mu          sync.Mutex // serializes EnsureCollection
	cacheMu     sync.RWMutex
	collections map[string]collection.Collection
}

// New creates a gateway; keys are namespaced under prefix.
func New(s store, prefix string) *Repo {
	return &Repo{
		store:       s,
		prefix:      prefix,
		hnsw:        HNSWConfig{M: 32, EFConstruct: 400},
		identity:    IdentityRandom,
		newID:       uuid.NewString,
		collections: make(map[string]collection.Collection),
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// WithIdentity configures point id assignment. Unknown values keep the random default.
func (r *Repo) WithIdentity(id Identity) *Repo {
	if id == IdentityContent || id == IdentityRandom {
		r.identity = id
	}
	return r
}

// EnsureCollection creates the collection if absent, otherwise verifies its schema.
// An existing collection whose FT index is gone gets the index recreated; the schema is never altered.
func (r *Repo) EnsureCollection(ctx context.Context, want collection.Collection) (col collection.Collection, err error) {
	defer observe("ensure_collection", time.Now(), &err)

	r.mu.Lock()
	defer r.mu.Unlock()

	name := want.Name()
	metaKey := r.metaKey(name)

	m, err := r.store.GetHash(ctx, metaKey)
	if err != nil {
		return collection.Collection{}, unavailable("read collection "+name, err)
	}

	if len(m) > 0 {
		existing, err := collectionFromHash(m)
		if err != nil {
			return collection.Collection{}, unavailable("parse collection "+name, err)
		}
		if err := existing.Compatible(want); err != nil {
			return collection.Collection{}, fmt.Errorf("collection %s: %w", name, err)
		}
		if err := r.ensureIndex(ctx, existing); err != nil {
			return collection.Collection{}, err
		}
		r.remember(existing)
		return existing, nil
	}

	def, err := r.buildIndex(want)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("collection %s: %w: %w", name, domain.ErrInvalidCollection, err)
	}

	if err := r.store.PutHashes(ctx, db.Hash{Key: metaKey, Fields: collectionToHash(want)}); err != nil {
		return collection.Collection{}, unavailable("write collection "+name, err)
	}

	// Losing a creation race to another process still leaves a usable index.
	// Any other failure removes the metadata so the next attempt starts clean.
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		cleanupErr := r.store.DeleteKeys(ctx, metaKey)
		return collection.Collection{}, unavailable("create index "+def.Name, errors.Join(err, cleanupErr))
	}

	r.remember(want)
	return want, nil
}

func (r *Repo) ensureIndex(ctx context.Context, col collection.Collection) error {
	idxName := r.indexName(col.Name())
	exists, err := r.store.IndexExists(ctx, idxName)
	if err != nil {
		return unavailable("check index "+idxName, err)
	}
	if exists {
		return nil
	}
	def, err := r.buildIndex(col)
	if err != nil {
		return unavailable("rebuild index "+idxName, err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return unavailable("recreate index "+idxName, err)
	}
	return nil
}

// Collection returns the stored schema of a collection.
func (r *Repo) Collection(ctx context.Context, name string) (collection.Collection, error) {
	r.cacheMu.RLock()
	col, ok := r.collections[name]
	r.cacheMu.RUnlock()
	if ok {
		return col, nil
	}

	m, err := r.store.GetHash(ctx, r.metaKey(name))
	if err != nil {
		return collection.Collection{}, unavailable("read collection "+name, err)
	}
	if len(m) == 0 {
		return collection.Collection{}, fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	col, err = collectionFromHash(m)
	if err != nil {
		return collection.Collection{}, unavailable("parse collection "+name, err)
	}
	r.remember(col)
	return col, nil
}

// remember caches a collection schema; schemas are immutable once created.
func (r *Repo) remember(col collection.Collection) {
	r.cacheMu.Lock()
	r.collections[col.Name()] = col
	r.cacheMu.Unlock()
}

// Upsert writes one point per (text, vector) pair with payload md+text, in a single pipelined round trip.
// Returns the assigned point ids in input order.
func (r *Repo) Upsert(
	ctx context.Context, name string, texts []string, vectors [][]float32, md metadata.Metadata,
) (ids []string, err error) {
	defer observe("upsert", time.Now(), &err)

	if len(texts) != len(vectors) {
		return nil, fmt.Errorf("upsert %d texts with %d vectors: %w", len(texts), len(vectors), domain.ErrInvalidRequest)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	col, err := r.Collection(ctx, name)
	if err != nil {
		return nil, err
	}
	for i, v := range vectors {
		if len(v) != col.Dimension() {
			return nil, fmt.Errorf("vector %d: %w", i, domain.NewDimensionMismatch(col.Dimension(), len(v)))
		}
	}

	ids = make([]string, len(texts))
	points := make([]db.Hash, len(texts))
	for i, text := range texts {
		payload, err := md.MarshalPayload(text)
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w: %w", i, domain.ErrInvalidRequest, err)
		}
		ids[i] = r.pointID(name, payload)
		points[i] = db.Hash{
			Key: r.pointKey(name, ids[i]),
			Fields: map[string]string{
				fieldPayload: string(payload),
				fieldVector:  db.EncodeVector(vectors[i]),
			},
		}
	}

	if err := r.store.PutHashes(ctx, points...); err != nil {
		return nil, unavailable("upsert "+name, err)
	}
	return ids, nil
}

func (r *Repo) pointID(name string, payload []byte) string {
	if r.identity != IdentityContent {
		return r.newID()
	}
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Search returns the topK points nearest to vector, highest similarity first.
func (r *Repo) Search(ctx context.Context, name string, vector []float32, topK int) (hits []retrieval.Hit, err error) {
	defer observe("search", time.Now(), &err)

	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d: %w", topK, domain.ErrInvalidRequest)
	}

	col, err := r.Collection(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != col.Dimension() {
		return nil, fmt.Errorf("query vector: %w", domain.NewDimensionMismatch(col.Dimension(), len(vector)))
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(name),
		VectorField:  vectorAttr,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{fieldPayload, db.ScoreField},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("collection %s: %w: %w", name, domain.ErrCollectionNotFound, err)
		}
		return nil, unavailable("search "+name, err)
	}

	prefix := r.pointPrefix(name)
	hits = make([]retrieval.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		text, md, err := metadata.ParsePayload([]byte(e.Fields[fieldPayload]))
		if err != nil {
			continue // not written by this gateway
		}
		id := strings.TrimPrefix(e.Key, prefix)
		hits = append(hits, retrieval.NewHit(id, text, col.Metric().Similarity(e.Distance), md))
	}

	slices.SortStableFunc(hits, func(a, b retrieval.Hit) int {
		switch {
		case a.Score() > b.Score():
			return -1
		case a.Score() < b.Score():
			return 1
		default:
			return 0
		}
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrIndexUnavailable, err)
}

func observe(op string, start time.Time, errp *error) {
	status := "ok"
	if *errp != nil {
		status = "error"
	}
	metrics.IndexOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.IndexOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
