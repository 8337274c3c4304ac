package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragdex/internal/db"
)

const defaultVectorAttr = "vector"

// SearchKNN runs a KNN query through FT.SEARCH.
// Entries carry the raw distance in reply order; callers convert and sort.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(searchArgs(q)...).Build()
	reply, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			err = db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseSearchReply(reply)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return res, nil
}

func searchArgs(q *db.KNNQuery) []string {
	attr := q.VectorField
	if attr == "" {
		attr = defaultVectorAttr
	}
	k := strconv.Itoa(q.K)

	args := []string{q.IndexName, fmt.Sprintf("*=>[KNN %s @%s $BLOB]", k, attr)}
	if n := len(q.ReturnFields); n > 0 {
		args = append(args, "RETURN", strconv.Itoa(n))
		args = append(args, q.ReturnFields...)
	}
	// FT.SEARCH returns 10 rows unless LIMIT says otherwise. valkey-search
	// rejects SORTBY on KNN queries, so ordering is left to the caller.
	return append(args,
		"LIMIT", "0", k,
		"PARAMS", "2", "BLOB", db.EncodeVector(q.Vector),
		"DIALECT", "2",
	)
}

// parseSearchReply decodes the RESP2 reply [total, key, [field, value, ...], key, ...].
// Rows that are not a key followed by a field array are skipped.
func parseSearchReply(reply []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(reply) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := reply[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	rows := reply[1:]
	res := &db.SearchResult{Total: int(total), Entries: make([]db.SearchEntry, 0, len(rows)/2)}
	for i := 0; i+1 < len(rows); i += 2 {
		key, err := rows[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := rows[i+1].ToArray()
		if err != nil {
			continue
		}
		res.Entries = append(res.Entries, newEntry(key, pairs))
	}
	return res, nil
}

func newEntry(key string, pairs []rueidis.RedisMessage) db.SearchEntry {
	e := db.SearchEntry{Key: key, Fields: make(map[string]string, len(pairs)/2)}
	for j := 0; j+1 < len(pairs); j += 2 {
		name, nameErr := pairs[j].ToString()
		value, valueErr := pairs[j+1].ToString()
		if nameErr != nil || valueErr != nil {
			continue
		}
		if name == db.ScoreField {
			if d, err := strconv.ParseFloat(value, 64); err == nil {
				e.Distance = d
			}
			continue
		}
		e.Fields[name] = value
	}
	return e
}
