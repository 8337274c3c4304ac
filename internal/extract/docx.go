package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxBodyPart = "word/document.xml"
	// maxDocxPart caps the decompressed size of the body part.
	maxDocxPart = 64 << 20
)

// wordML is the WordprocessingML main namespace.
const wordML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// DOCX returns the text of every non-blank paragraph of word/document.xml, one per line.
func DOCX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", failed("docx container: %v", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", failed("docx has no %s", docxBodyPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", failed("open %s: %v", docxBodyPart, err)
	}
	defer func() { _ = rc.Close() }()

	paragraphs, err := docxParagraphs(io.LimitReader(rc, maxDocxPart))
	if err != nil {
		return "", failed("parse %s: %v", docxBodyPart, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// docxParagraphs streams <w:p> elements and collects the text runs of each.
// <w:tab/> becomes a tab and <w:br/>/<w:cr/> a newline inside the paragraph.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		cur        strings.Builder
		depth      int // nesting of <w:p>, text boxes may nest paragraphs
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml token: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Space != wordML {
				continue
			}
			switch el.Name.Local {
			case "p":
				depth++
			case "t":
				inText = depth > 0
			case "tab":
				if depth > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if el.Name.Space != wordML {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth > 0 {
					continue
				}
				if p := cur.String(); strings.TrimSpace(p) != "" {
					paragraphs = append(paragraphs, p)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(el)
			}
		}
	}

	if depth != 0 {
		return nil, errors.New("unterminated paragraph")
	}
	return paragraphs, nil
}
