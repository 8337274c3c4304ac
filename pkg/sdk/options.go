package ragdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	// database
	driver   string // valkey, redis or memory
	url      string
	addrs    []string
	password string

	// embedding
	embedder         Embedder // nil selects the hashing embedder
	vectorDimensions int
	maxBatchSize     int
	embeddingCache   bool

	// collection and key layout
	collection string
	metric     string
	algorithm  string
	hnswM      int
	hnswEF     int
	keyPrefix  string
	identity   string

	chunkSize    int
	chunkOverlap int
	defaultTopK  int
	maxTopK      int

	pdfLicense string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		vectorDimensions: 384,
		collection:       "docs",
		metric:           "cosine",
		algorithm:        "hnsw",
		keyPrefix:        "ragdex:",
		identity:         "random",
		chunkSize:        1000,
		chunkOverlap:     200,
	}
}

func server(driver, addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = driver
		c.url = ""
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithValkey connects to a Valkey server at addr (host:port).
func WithValkey(addr, password string) Option { return server("valkey", addr, password) }

// WithRedis connects to a Redis Stack server at addr (host:port).
func WithRedis(addr, password string) Option { return server("redis", addr, password) }

// WithURL connects with a redis:// or rediss:// URL; credentials and db come from the URL.
func WithURL(url string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.url = url
		c.addrs = nil
	}
}

// WithMemory keeps the index in process memory. Nothing is persisted.
func WithMemory() Option {
	return func(c *clientConfig) { c.driver = "memory" }
}

// WithEmbedder sets the embedding model. Its vectors must have the
// length set by WithVectorDimensions.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithHashingEmbedder selects the built-in offline feature-hashing embedder
// with dim-sized vectors. It is the default when no embedder is set.
func WithHashingEmbedder(dim int) Option {
	return func(c *clientConfig) {
		c.embedder = nil
		c.vectorDimensions = dim
	}
}

// WithEmbeddingCache memoizes vectors in the database so repeated texts skip the model.
func WithEmbeddingCache() Option {
	return func(c *clientConfig) { c.embeddingCache = true }
}

// WithVectorDimensions sets the collection vector length (default 384).
func WithVectorDimensions(dim int) Option {
	return func(c *clientConfig) { c.vectorDimensions = dim }
}

// WithMaxBatchSize caps the texts sent per embedding call (default 256).
func WithMaxBatchSize(size int) Option {
	return func(c *clientConfig) { c.maxBatchSize = size }
}

// WithCollection sets the collection name and metric: cosine, l2 or ip.
// Defaults to "docs" and cosine.
func WithCollection(name, metric string) Option {
	return func(c *clientConfig) {
		c.collection = name
		c.metric = metric
	}
}

// WithFlatIndex selects exact search instead of HNSW.
func WithFlatIndex() Option {
	return func(c *clientConfig) { c.algorithm = "flat" }
}

// WithHNSW sets the HNSW graph degree and build-time candidate list (defaults 32 and 400).
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.algorithm = "hnsw"
		c.hnswM = m
		c.hnswEF = efConstruct
	}
}

// WithKeyPrefix namespaces every key the client writes (default "ragdex:").
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) { c.keyPrefix = prefix }
}

// WithContentIdentity derives point ids from chunk content, so re-ingesting
// a chunk overwrites its point instead of adding a duplicate.
func WithContentIdentity() Option {
	return func(c *clientConfig) { c.identity = "content" }
}

// WithChunking sets the chunk window in characters (defaults 1000 and 200).
// overlap must be in [0, size).
func WithChunking(size, overlap int) Option {
	return func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	}
}

// WithTopK sets the default and maximum hits per query (defaults 5 and 100).
func WithTopK(defaultTopK, maxTopK int) Option {
	return func(c *clientConfig) {
		c.defaultTopK = defaultTopK
		c.maxTopK = maxTopK
	}
}

// WithPDFLicense installs a UniDoc license key for layout-aware PDF text
// extraction. Without one the PDF text layer is read directly. The key is
// process-wide.
func WithPDFLicense(key string) Option {
	return func(c *clientConfig) { c.pdfLicense = key }
}

// WithLogger logs every SDK operation to l. Logging is off by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithPrometheus records operation counts, latency and item counts on reg.
// Clients sharing a registerer share the collectors.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(c *clientConfig) { c.metricsReg = reg }
}
