package extract

import (
	"bytes"
	"unicode/utf8"
)

// Text returns UTF-8 plain text unchanged apart from a leading byte-order mark.
func Text(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", failed("text is not valid UTF-8")
	}
	return string(raw), nil
}
