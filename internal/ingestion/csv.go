package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ErrEmptySource means the export had no header or no data rows.
var ErrEmptySource = errors.New("source contains no data rows")

// RawField is one cell with the header it sat under.
type RawField struct {
	Header string
	Value  string
}

// RawRow is one data line. Index is 0-based over non-blank data lines, so the
// spreadsheet row number is Index+2.
type RawRow struct {
	Index  int
	Fields []RawField
}

// ReadCSVString reads a comma separated export with a header line. A UTF-8
// BOM and any leading control bytes are dropped, cells are trimmed and blank
// lines skipped.
// Rows may be shorter or longer than the header.
func ReadCSVString(text string) ([]RawRow, error) {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.TrimLeftFunc(text, unicode.IsControl)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptySource
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		if blank(record) {
			continue
		}

		fields := make([]RawField, 0, len(header))
		for i, h := range header {
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			fields = append(fields, RawField{Header: h, Value: value})
		}
		rows = append(rows, RawRow{Index: len(rows), Fields: fields})
	}

	if len(rows) == 0 {
		return nil, ErrEmptySource
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
