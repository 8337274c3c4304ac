package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	csvCellSeparator = " | "
	csvRowSeparator  = "\n"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV flattens a table: the first record is the header and is skipped, each
// remaining row becomes its cells joined by " | ", rows joined by newlines.
func CSV(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", failed("csv is not valid UTF-8")
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1

	var rows []string
	header := true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", failed("csv: %v", err)
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, strings.Join(record, csvCellSeparator))
	}

	return strings.Join(rows, csvRowSeparator), nil
}
