package ragdex

import "github.com/kailas-cloud/ragdex/internal/domain/retrieval"

// IngestReport summarizes one ingestion call.
type IngestReport struct {
	Chunks   int
	PointIDs []string
}

// Source is one retrieved chunk.
type Source struct {
	ID       string
	Text     string
	Score    float64 // higher is more similar
	Metadata map[string]any
}

// QueryResult holds the assembled context and its sources in rank order.
type QueryResult struct {
	Context string
	Sources []Source
}

func queryResultFromDomain(r retrieval.Result) QueryResult {
	sources := make([]Source, len(r.Sources))
	for i, h := range r.Sources {
		sources[i] = Source{
			ID:       h.ID(),
			Text:     h.Text(),
			Score:    h.Score(),
			Metadata: h.Metadata().Map(),
		}
	}
	return QueryResult{Context: r.Context, Sources: sources}
}
