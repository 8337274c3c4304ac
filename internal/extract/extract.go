// Package extract converts raw document bytes into plain text by file type.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/metadata"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Metadata keys attached to every extracted document.
const (
	KeyFilename = "filename"
	KeyFileType = "file_type"
)

// Extractor turns the bytes of one file format into text.
type Extractor interface {
	Extract(raw []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(raw []byte) (string, error)

// Extract calls f(raw).
func (f ExtractorFunc) Extract(raw []byte) (string, error) { return f(raw) }

// Registry dispatches extraction by file type.
type Registry struct {
	extractors map[document.FileType]Extractor
	logger     *zap.Logger
}

// NewRegistry creates a registry with the pdf, docx, csv and txt extractors.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		extractors: make(map[document.FileType]Extractor, len(document.Known)),
		logger:     logger,
	}
	r.Register(document.TypePDF, ExtractorFunc(PDF))
	r.Register(document.TypeDOCX, ExtractorFunc(DOCX))
	r.Register(document.TypeCSV, ExtractorFunc(CSV))
	r.Register(document.TypeTXT, ExtractorFunc(Text))
	return r
}

// Register installs or replaces the extractor for t.
func (r *Registry) Register(t document.FileType, e Extractor) {
	r.extractors[t] = e
}

// Extract decodes raw according to the extension of filename and returns the text
// together with {filename, file_type} metadata. Unknown extensions fail with
// ErrUnsupportedFileType; decoding failures of a known type with ErrExtractionFailed.
func (r *Registry) Extract(ctx context.Context, filename string, raw []byte) (string, metadata.Metadata, error) {
	doc, err := document.New(filename, raw)
	if err != nil {
		return "", metadata.Metadata{}, err
	}

	e, ok := r.extractors[doc.Type()]
	if !ok {
		return "", metadata.Metadata{}, fmt.Errorf("no extractor for %s: %w", doc.Type(), domain.ErrUnsupportedFileType)
	}

	if err := ctx.Err(); err != nil {
		return "", metadata.Metadata{}, fmt.Errorf("extract %s: %w", doc.Filename(), err)
	}

	start := time.Now()
	text, err := e.Extract(doc.Raw())
	duration := time.Since(start)

	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(string(doc.Type()), "error").Inc()
		r.logger.Warn("Extraction failed",
			zap.String("filename", doc.Filename()),
			zap.String("file_type", string(doc.Type())),
			zap.Int("bytes", doc.Size()),
			zap.Error(err),
		)
		if !errors.Is(err, domain.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}
		return "", metadata.Metadata{}, fmt.Errorf("extract %s: %w", doc.Filename(), err)
	}

	metrics.ExtractionsTotal.WithLabelValues(string(doc.Type()), "success").Inc()
	r.logger.Debug("Extraction completed",
		zap.String("filename", doc.Filename()),
		zap.String("file_type", string(doc.Type())),
		zap.Int("bytes", doc.Size()),
		zap.Int("text_len", len(text)),
		zap.Duration("duration", duration),
	)

	md := metadata.FromStrings(map[string]string{
		KeyFilename: doc.Filename(),
		KeyFileType: string(doc.Type()),
	})
	return text, md, nil
}

func failed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrExtractionFailed, fmt.Sprintf(format, args...))
}
