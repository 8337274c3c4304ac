package document

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// FileType is the document format derived from the filename extension.
type FileType string

const (
	// TypePDF is a Portable Document Format file.
	TypePDF FileType = "pdf"
	// TypeDOCX is an Office Open XML word-processing file.
	TypeDOCX FileType = "docx"
	// TypeCSV is a comma-separated table with a header row.
	TypeCSV FileType = "csv"
	// TypeTXT is UTF-8 plain text.
	TypeTXT FileType = "txt"
)

// Known lists every supported file type.
var Known = []FileType{TypePDF, TypeDOCX, TypeCSV, TypeTXT}

// IsValid checks if the file type is supported.
func (t FileType) IsValid() bool {
	switch t {
	case TypePDF, TypeDOCX, TypeCSV, TypeTXT:
		return true
	}
	return false
}

// TypeFromFilename returns the lower-cased extension as a FileType.
// "Report.PDF" and "report.pdf" map to the same type.
func TypeFromFilename(filename string) (FileType, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	t := FileType(ext)
	if !t.IsValid() {
		if ext == "" {
			return "", fmt.Errorf("%q has no extension: %w", filename, domain.ErrUnsupportedFileType)
		}
		return "", fmt.Errorf("extension %q: %w", ext, domain.ErrUnsupportedFileType)
	}
	return t, nil
}

// Document is an uploaded file awaiting extraction (immutable value object).
// Raw bytes are handed to the extractor and not retained afterwards.
type Document struct {
	filename string
	fileType FileType
	raw      []byte
}

// New validates the filename and creates a Document.
func New(filename string, raw []byte) (Document, error) {
	name := filepath.Base(filename)
	if filename == "" || name == "." || name == string(filepath.Separator) {
		return Document{}, fmt.Errorf("filename is required: %w", domain.ErrInvalidRequest)
	}
	t, err := TypeFromFilename(name)
	if err != nil {
		return Document{}, err
	}
	return Document{filename: name, fileType: t, raw: raw}, nil
}

// Filename returns the base filename.
func (d Document) Filename() string { return d.filename }

// Type returns the file type.
func (d Document) Type() FileType { return d.fileType }

// Raw returns the file contents.
func (d Document) Raw() []byte { return d.raw }

// Size returns the content length in bytes.
func (d Document) Size() int { return len(d.raw) }
