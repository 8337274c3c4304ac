package health

import "context"

// IndexPinger reports whether the vector index backend answers.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ModelProbe reports whether the shared embedding model can serve requests.
// A lazily initialized model is loaded by the first probe.
type ModelProbe interface {
	HealthCheck(ctx context.Context) error
}
