package extract

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/contentstream"
	"github.com/unidoc/unipdf/v3/core"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// pageSeparator separates the text of consecutive PDF pages.
const pageSeparator = "\n\n"

// wordGap is the TJ position adjustment, in thousandths of a text space unit,
// at or below which two strings are read as separate words.
const wordGap = -200

var pdfLicensed atomic.Bool

// SetPDFLicense installs a UniDoc metered license key and switches PDF pages
// to the layout-aware unipdf extractor. An empty key is a no-op.
func SetPDFLicense(key string) error {
	if key == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("set unidoc license: %w", err)
	}
	pdfLicensed.Store(true)
	return nil
}

// PDF extracts the text layer of every page in document order. The unipdf
// extractor refuses to run unlicensed, so without a key the page content
// streams are decoded directly.
func PDF(raw []byte) (text string, err error) {
	// unipdf panics on some malformed cross-reference tables
	defer func() {
		if rvr := recover(); rvr != nil {
			text = ""
			err = failed("pdf parser panic: %v", rvr)
		}
	}()

	reader, err := model.NewPdfReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w: %w", domain.ErrExtractionFailed, err)
	}

	encrypted, err := reader.IsEncrypted()
	if err != nil {
		return "", fmt.Errorf("pdf encryption: %w: %w", domain.ErrExtractionFailed, err)
	}
	if encrypted {
		ok, err := reader.Decrypt([]byte(""))
		if err != nil || !ok {
			return "", failed("pdf is password protected")
		}
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("pdf pages: %w: %w", domain.ErrExtractionFailed, err)
	}

	pageText := textLayer
	if pdfLicensed.Load() {
		pageText = layoutText
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w: %w", i, domain.ErrExtractionFailed, err)
		}
		t, err := pageText(page)
		if err != nil {
			return "", fmt.Errorf("pdf page %d text: %w: %w", i, domain.ErrExtractionFailed, err)
		}
		pages = append(pages, t)
	}

	return strings.Join(pages, pageSeparator), nil
}

func layoutText(page *model.PdfPage) (string, error) {
	ex, err := extractor.New(page)
	if err != nil {
		return "", err
	}
	return ex.ExtractText()
}

// textLayer collects the strings shown by the page's text operators, one line
// per text line. Text inside form XObjects is not followed.
func textLayer(page *model.PdfPage) (string, error) {
	content, err := page.GetAllContentStreams()
	if err != nil {
		return "", err
	}
	ops, err := contentstream.NewContentStreamParser(content).Parse()
	if err != nil {
		return "", err
	}

	w := &textWriter{page: page, fonts: make(map[string]*model.PdfFont)}
	for _, op := range *ops {
		w.apply(op)
	}
	return w.text(), nil
}

type textWriter struct {
	page  *model.PdfPage
	fonts map[string]*model.PdfFont // nil entries are fonts unipdf cannot load
	font  *model.PdfFont
	lines []string
	cur   strings.Builder
}

func (w *textWriter) apply(op *contentstream.ContentStreamOperation) {
	params := op.Params
	switch op.Operand {
	case "Tf":
		if len(params) > 0 {
			if name, ok := core.GetName(params[0]); ok {
				w.font = w.lookup(string(*name))
			}
		}
	case "Tj":
		if len(params) > 0 {
			w.show(params[0])
		}
	case "'", `"`:
		w.newline()
		if len(params) > 0 {
			w.show(params[len(params)-1])
		}
	case "TJ":
		if len(params) == 0 {
			return
		}
		arr, ok := core.GetArray(params[0])
		if !ok {
			return
		}
		for _, el := range arr.Elements() {
			if adj, err := core.GetNumberAsFloat(el); err == nil {
				if adj <= wordGap {
					w.cur.WriteByte(' ')
				}
				continue
			}
			w.show(el)
		}
	case "T*", "ET":
		w.newline()
	case "Td", "TD":
		if len(params) == 2 {
			if ty, err := core.GetNumberAsFloat(params[1]); err == nil && ty != 0 {
				w.newline()
			}
		}
	}
}

func (w *textWriter) lookup(name string) *model.PdfFont {
	if f, ok := w.fonts[name]; ok {
		return f
	}
	var font *model.PdfFont
	if w.page.Resources != nil {
		if obj, ok := w.page.Resources.GetFontByName(core.PdfObjectName(name)); ok {
			font, _ = model.NewPdfFontFromPdfObject(obj)
		}
	}
	w.fonts[name] = font
	return font
}

func (w *textWriter) show(obj core.PdfObject) {
	b, ok := core.GetStringBytes(obj)
	if !ok || len(b) == 0 {
		return
	}
	if w.font != nil {
		if s, _, _ := w.font.CharcodeBytesToUnicode(b); s != "" {
			w.cur.WriteString(s)
			return
		}
	}
	// no usable font: treat codes as Latin-1
	for _, c := range b {
		w.cur.WriteRune(rune(c))
	}
}

func (w *textWriter) newline() {
	if line := strings.TrimSpace(w.cur.String()); line != "" {
		w.lines = append(w.lines, line)
	}
	w.cur.Reset()
}

func (w *textWriter) text() string {
	w.newline()
	return strings.Join(w.lines, "\n")
}
