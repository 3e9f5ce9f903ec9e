// Package coerce converts raw spreadsheet cells into values a destination
// column of a given semantic type will accept.
//
// The policy is parse-or-null: a cell that cannot be read as the column's
// type becomes nil. Coercion never fails a row or a run.
package coerce

import (
	"strings"

	"sheetsync/internal/schema"
)

// Options tunes coercion per job.
type Options struct {
	// EmptyTextAsNull loads "" into text/other columns as NULL.
	EmptyTextAsNull bool
}

// Value coerces one cell. The result is nil, string, int64 or float64.
func Value(raw string, t schema.DeclaredType, opts Options) any {
	switch t {
	case schema.Date:
		if d, ok := ParseDate(raw); ok {
			return d
		}
		return nil
	case schema.Integer:
		if n, ok := ParseInt(raw); ok {
			return n
		}
		return nil
	case schema.Float:
		if f, ok := ParseFloat(raw); ok {
			return f
		}
		return nil
	default:
		if raw == "" && opts.EmptyTextAsNull {
			return nil
		}
		return raw
	}
}

// Column coerces a whole column.
func Column(raw []string, t schema.DeclaredType, opts Options) []any {
	out := make([]any, len(raw))
	for i, r := range raw {
		out[i] = Value(r, t, opts)
	}
	return out
}

// Table builds the coerced table: one output row per input row, one value per
// plan column taken from input position index[i]. Input rows shorter than an
// index yield "" for the missing cell.
func Table(rows [][]string, index []int, plan []schema.ColumnSpec, opts Options) [][]any {
	out := make([][]any, len(rows))
	for r, row := range rows {
		vals := make([]any, len(plan))
		for c, col := range plan {
			var cell string
			if p := index[c]; p < len(row) {
				cell = row[p]
			}
			vals[c] = Value(cell, col.Type, opts)
		}
		out[r] = vals
	}
	return out
}

// isNullSentinel reports the textual spellings of "no value" that numeric
// columns treat as NULL before any parsing.
func isNullSentinel(s string) bool {
	switch strings.ToLower(s) {
	case "", "none", "nan":
		return true
	}
	return false
}
