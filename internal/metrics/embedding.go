package metrics

// Embedding model metrics. provider and model label every call-level series.
var (
	EmbeddingRequestsTotal = counterVec("embedding_requests_total",
		"Embedding provider calls by outcome", "provider", "model", "status")

	EmbeddingRequestDuration = histogramVec("embedding_request_duration_seconds",
		"Embedding provider call latency",
		[]float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		"provider", "model")

	// type is "prompt" or "total".
	EmbeddingTokensTotal = counterVec("embedding_tokens_total",
		"Tokens reported by the embedding provider", "provider", "model", "type")

	EmbeddingErrorsTotal = counterVec("embedding_errors_total",
		"Embedding failures by class", "provider", "model", "error_type")

	EmbeddingTextsTotal = counterVec("embedding_texts_total",
		"Texts turned into vectors", "provider", "model")

	EmbeddingModelInitTotal = counterVec("embedding_model_init_total",
		"Shared embedding model initializations by outcome", "status")

	// result is "hit" or "miss", one per looked up text.
	EmbeddingCacheTotal = counterVec("embedding_cache_total",
		"Embedding cache lookups", "result")
)
