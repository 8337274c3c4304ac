// Package memory is an in-process db.Store with brute-force KNN, for local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

var errClosed = errors.New("memory store is closed")

// Store keeps hashes and FT index definitions in maps guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	indexes map[string]*db.IndexDefinition
	closed  bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

// Ping fails only after Close.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx, db.OpPing)
}

// Close marks the store closed; later calls fail.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// WaitForReady returns immediately: the store is ready once constructed.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// check must be called with the lock held.
func (s *Store) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	if s.closed {
		return &db.Error{Op: op, Err: errClosed}
	}
	return nil
}

// PutHashes merges each hash's fields; all hashes land under one lock.
func (s *Store) PutHashes(ctx context.Context, hashes ...db.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, db.OpPutHash); err != nil {
		return err
	}
	for _, h := range hashes {
		dst, ok := s.hashes[h.Key]
		if !ok {
			dst = make(map[string]string, len(h.Fields))
			s.hashes[h.Key] = dst
		}
		maps.Copy(dst, h.Fields)
	}
	return nil
}

// GetHash returns a copy of the hash; a missing key yields an empty map.
func (s *Store) GetHash(ctx context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, db.OpGetHash); err != nil {
		return nil, err
	}
	h := maps.Clone(s.hashes[key])
	if h == nil {
		h = map[string]string{}
	}
	return h, nil
}

// DeleteKeys removes keys; missing keys are ignored.
func (s *Store) DeleteKeys(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, db.OpDelete); err != nil {
		return err
	}
	for _, k := range keys {
		delete(s.hashes, k)
	}
	return nil
}

// CreateIndex registers an index definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, db.OpCreateIndex); err != nil {
		return err
	}
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	cp := *def
	cp.Prefixes = slices.Clone(def.Prefixes)
	s.indexes[def.Name] = &cp
	return nil
}

// IndexExists reports whether the index is registered.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, db.OpIndexInfo); err != nil {
		return false, err
	}
	_, ok := s.indexes[name]
	return ok, nil
}

// SearchKNN scans every hash under the index prefixes and returns the K nearest by raw distance.
// Hashes whose vector is missing or of a different dimension are not indexed, as in FT indexes.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, db.OpSearch); err != nil {
		return nil, err
	}

	def, ok := s.indexes[q.IndexName]
	if !ok {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	vf := def.Vector
	if q.VectorField != "" && q.VectorField != vf.Attr() {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("unknown vector field %q", q.VectorField)}
	}
	if len(q.Vector) != vf.Dim {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("query vector dim %d, index dim %d", len(q.Vector), vf.Dim)}
	}

	var entries []db.SearchEntry
	for key, h := range s.hashes {
		if !hasAnyPrefix(key, def.Prefixes) {
			continue
		}
		v, err := db.DecodeVector(h[vf.Field])
		if err != nil || len(v) != vf.Dim {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:      key,
			Distance: distance(vf.Metric, q.Vector, v),
			Fields:   project(h, q.ReturnFields),
		})
	}

	slices.SortFunc(entries, func(a, b db.SearchEntry) int {
		if a.Distance != b.Distance {
			if a.Distance < b.Distance {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Key, b.Key)
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func hasAnyPrefix(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func project(h map[string]string, fields []string) map[string]string {
	if len(fields) == 0 {
		return maps.Clone(h)
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if f == db.ScoreField {
			continue
		}
		if v, ok := h[f]; ok {
			out[f] = v
		}
	}
	return out
}

// distance mirrors the index engines: cosine is 1-cos, IP is 1-dot, L2 is squared Euclidean.
func distance(metric db.DistanceMetric, a, b []float32) float64 {
	switch metric {
	case db.DistanceL2:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return sum
	case db.DistanceIP:
		return 1 - dot(a, b)
	default:
		na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot(a, b)/(na*nb)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
