package metrics

// Ingestion and vector index metrics.
var (
	ExtractionsTotal = counterVec("extractions_total",
		"Document text extractions by file type and outcome", "file_type", "status")

	// kind is "document" for file uploads or "texts" for imported items.
	ChunksIngestedTotal = counterVec("chunks_ingested_total",
		"Chunks embedded and written to the vector index", "kind")

	IndexOperationsTotal = counterVec("index_operations_total",
		"Vector index gateway operations by outcome", "operation", "status")

	IndexOperationDuration = histogramVec("index_operation_duration_seconds",
		"Vector index gateway operation latency",
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		"operation")
)
