package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/metadata"
	"github.com/kailas-cloud/ragdex/internal/domain/retrieval"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
	"github.com/kailas-cloud/ragdex/internal/version"
)

// DefaultMaxUploadBytes caps POST /upload bodies when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// multipartMemory is the part of an upload kept in memory; the rest spills to temp files.
const multipartMemory = 8 << 20

// ErrorCode is the machine-readable error code in error responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodePayloadTooLarge     ErrorCode = "payload_too_large"
	CodeUnsupportedFileType ErrorCode = "unsupported_file_type"
	CodeExtractionFailed    ErrorCode = "extraction_failed"
	CodeInvalidChunkConfig  ErrorCode = "invalid_chunk_config"
	CodeInvalidRequest      ErrorCode = "invalid_request"
	CodeDimensionMismatch   ErrorCode = "dimension_mismatch"
	CodeSchemaMismatch      ErrorCode = "schema_mismatch"
	CodeCollectionNotFound  ErrorCode = "collection_not_found"
	CodeEmbeddingError      ErrorCode = "embedding_error"
	CodeIndexUnavailable    ErrorCode = "index_unavailable"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IngestResponse is returned by /upload and /cms/import.
type IngestResponse struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// ImportRequest is the body of POST /cms/import.
type ImportRequest struct {
	Items []string `json:"items"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k,omitempty"`
}

// ChatResponse carries the assembled context and its sources.
type ChatResponse struct {
	Context string   `json:"context"`
	Sources []Source `json:"sources"`
}

// Source is one ranked chunk.
type Source struct {
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata metadata.Metadata `json:"metadata"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the ingestion and query HTTP API.
type Server struct {
	ingest         *ingestuc.Service
	query          *queryuc.Service
	health         *healthuc.Service
	logger         *zap.Logger
	maxUploadBytes int64
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	query *queryuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ingest:         ingest,
		query:          query,
		health:         health,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	s.errorHandlers = []errorHandler{
		dimensionMismatchHandler,
		sentinelHandler(domain.ErrUnsupportedFileType, http.StatusUnsupportedMediaType, CodeUnsupportedFileType),
		sentinelHandler(domain.ErrExtractionFailed, http.StatusUnprocessableEntity, CodeExtractionFailed),
		sentinelHandler(domain.ErrInvalidChunkConfig, http.StatusBadRequest, CodeInvalidChunkConfig),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest),
		sentinelHandler(domain.ErrSchemaMismatch, http.StatusConflict, CodeSchemaMismatch),
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, CodeCollectionNotFound),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, CodeEmbeddingError),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable),
	}
	return s
}

// WithMaxUploadBytes caps the size of POST /upload bodies.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/upload", s.Upload)
	r.Post("/cms/import", s.ImportTexts)
	r.Post("/chat", s.Chat)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Upload handles POST /upload (multipart field "file").
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, `multipart field "file" is required`)
		return
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "failed to read uploaded file")
		return
	}

	report, err := s.ingest.IngestDocument(r.Context(), header.Filename, raw)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{Status: "ok", Chunks: report.Chunks})
}

// ImportTexts handles POST /cms/import.
func (s *Server) ImportTexts(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Items == nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "items is required")
		return
	}

	report, err := s.ingest.IngestTexts(r.Context(), req.Items)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{Status: "ok", Chunks: report.Chunks})
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK := s.query.DefaultTopK()
	if req.TopK != nil {
		topK = *req.TopK
	}

	res, err := s.query.Query(r.Context(), req.Question, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse(res))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func chatResponse(res retrieval.Result) ChatResponse {
	sources := make([]Source, len(res.Sources))
	for i, h := range res.Sources {
		sources[i] = Source{Text: h.Text(), Score: h.Score(), Metadata: h.Metadata()}
	}
	return ChatResponse{Context: res.Context, Sources: sources}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees only the sentinel text, never wrapped internals.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// dimensionMismatchHandler reports expected and actual sizes. Requests carry
// no vectors, so a mismatch is a model and collection disagreement on our side.
func dimensionMismatchHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		return false
	}
	msg := domain.ErrDimensionMismatch.Error()
	var dme *domain.DimensionMismatchError
	if errors.As(err, &dme) {
		msg = dme.Error()
	}
	writeError(w, http.StatusInternalServerError, CodeDimensionMismatch, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
