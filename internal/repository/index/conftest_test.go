package index

import (
	"context"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/db/memory"
	"github.com/kailas-cloud/ragdex/internal/domain/collection"
)

const testPrefix = "ragdex:"

// mockStore implements the consumer interface for tests.
type mockStore struct {
	putHashesFn   func(ctx context.Context, hashes ...db.Hash) error
	getHashFn     func(ctx context.Context, key string) (map[string]string, error)
	deleteKeysFn  func(ctx context.Context, keys ...string) error
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) PutHashes(ctx context.Context, hashes ...db.Hash) error {
	if m.putHashesFn != nil {
		return m.putHashesFn(ctx, hashes...)
	}
	return nil
}

func (m *mockStore) GetHash(ctx context.Context, key string) (map[string]string, error) {
	if m.getHashFn != nil {
		return m.getHashFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) DeleteKeys(ctx context.Context, keys ...string) error {
	if m.deleteKeysFn != nil {
		return m.deleteKeysFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testPrefix), ms
}

func newMemoryRepo(t *testing.T) (*Repo, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	return New(s, testPrefix), s
}

func testCollection(t *testing.T, dim int) collection.Collection {
	t.Helper()
	col, err := collection.New("docs", dim, collection.MetricCosine, collection.AlgorithmHNSW)
	if err != nil {
		t.Fatalf("collection.New: %v", err)
	}
	return col
}

// storedMeta is the metadata hash of a 3-dim cosine "docs" collection.
func storedMeta() map[string]string {
	return map[string]string{
		"name":       "docs",
		"dimension":  "3",
		"metric":     "cosine",
		"algorithm":  "hnsw",
		"created_at": "1700000000000",
	}
}
