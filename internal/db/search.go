package db

import "errors"

// ScoreField is the pseudo-field FT.SEARCH fills with the KNN distance.
// Drivers strip it from SearchEntry.Fields and report it as Distance.
const ScoreField = "__vector_score"

// KNNQuery asks for the K hashes nearest to Vector.
type KNNQuery struct {
	IndexName    string
	VectorField  string // attribute to search, "vector" when empty
	Vector       []float32
	K            int
	ReturnFields []string // hash fields to return, all when empty
}

// Validate rejects queries no backend could run.
func (q *KNNQuery) Validate() error {
	switch {
	case q.IndexName == "":
		return errors.New("index name is required")
	case len(q.Vector) == 0:
		return errors.New("vector is required")
	case q.K <= 0:
		return errors.New("k must be positive")
	}
	return nil
}

// SearchResult holds the entries of one KNN query, nearest first when the backend sorts.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one hit. Distance is in the index metric, smaller is closer.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
