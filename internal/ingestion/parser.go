// Package ingestion reads logbook exports with arbitrary column naming and turns
// each line into a canonical flight entry, collecting per-row issues instead of
// failing the whole run.
package ingestion

import (
	"infinite-experiment/logbook/internal/models"
)

// Result is the outcome of normalizing every row of one export.
type Result struct {
	Entries     []models.LogbookEntry
	Issues      []models.Issue
	TotalRows   int
	ValidRows   int
	InvalidRows int
	SkippedRows int
}

// ParseFlights reads CSV text and normalizes every row. It fails only when the
// text itself is unusable; bad rows end up in Result.Issues.
func ParseFlights(text string, opts Options) (*Result, error) {
	rows, err := ReadCSVString(text)
	if err != nil {
		return nil, err
	}
	return NormalizeRows(rows, opts), nil
}

// NormalizeRows normalizes already split rows. Rows without a pilot name are
// counted as skipped and produce no issue.
func NormalizeRows(rows []RawRow, opts Options) *Result {
	res := &Result{TotalRows: len(rows)}
	for _, row := range rows {
		entry, problems, ok := NormalizeRow(Canonicalize(row), opts)
		switch {
		case !ok:
			res.SkippedRows++
		case len(problems) > 0:
			res.InvalidRows++
			res.Issues = append(res.Issues, models.Issue{RowNumber: row.Index + 2, Errors: problems})
		default:
			res.ValidRows++
			res.Entries = append(res.Entries, entry)
		}
	}
	return res
}
