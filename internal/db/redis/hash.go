package redis

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragdex/internal/db"
)

// maxPipeline caps the HSET commands sent in one DoMulti round trip so a large
// ingest does not queue an unbounded batch on a single connection.
const maxPipeline = 256

// PutHashes writes each hash with HSET, pipelined in groups of maxPipeline.
// The first failing key aborts the remaining groups.
func (s *Store) PutHashes(ctx context.Context, hashes ...db.Hash) error {
	for batch := range slices.Chunk(hashes, maxPipeline) {
		cmds := make(rueidis.Commands, 0, len(batch))
		for _, h := range batch {
			cmds = append(cmds, s.hset(h))
		}
		for i, res := range s.client.DoMulti(ctx, cmds...) {
			if err := res.Error(); err != nil {
				return &db.Error{Op: db.OpPutHash, Err: fmt.Errorf("key %s: %w", batch[i].Key, err)}
			}
		}
	}
	return nil
}

// hset builds HSET with fields in sorted order so the command is deterministic.
func (s *Store) hset(h db.Hash) rueidis.Completed {
	cmd := s.client.B().Hset().Key(h.Key).FieldValue()
	for _, name := range slices.Sorted(maps.Keys(h.Fields)) {
		cmd = cmd.FieldValue(name, h.Fields[name])
	}
	return cmd.Build()
}

// GetHash runs HGETALL; a missing key yields an empty map.
func (s *Store) GetHash(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.Do(ctx, s.client.B().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpGetHash, Err: err}
	}
	return m, nil
}

// DeleteKeys removes keys with a single DEL. Missing keys are not an error.
func (s *Store) DeleteKeys(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Del().Key(keys...).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}
