// Package parser turns a downloaded sheet export into a header row and
// positional data rows. Concrete formats live in subpackages (csv, xlsx).
package parser

import (
	"errors"
	"io"
)

// ErrNoHeader is returned when the input has no header row at all.
var ErrNoHeader = errors.New("parser: input has no header row")

// Table is a parsed sheet. Every row has exactly len(Headers) cells: short
// rows are padded with "" and cells beyond the last header are dropped.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Parser parses one document into a Table.
type Parser interface {
	Parse(r io.Reader) (*Table, error)
}

// Options shared by the format parsers.
type Options struct {
	// KeepEmptyRows keeps rows whose cells are all empty. Sheet exports pad
	// the used range with such rows, so they are dropped by default.
	KeepEmptyRows bool
}

// Builder accumulates records into a Table, applying the shape rules above.
type Builder struct {
	opt     Options
	t       Table
	dropped int // rows skipped as empty
	clipped int // rows that had non-empty cells past the last header
}

// NewBuilder returns a Builder whose first Add call sets the headers.
func NewBuilder(opt Options) *Builder { return &Builder{opt: opt} }

// Add appends one record. The first record becomes the header row.
func (b *Builder) Add(rec []string) {
	if b.t.Headers == nil {
		b.t.Headers = append([]string{}, rec...)
		return
	}
	if !b.opt.KeepEmptyRows && allEmpty(rec) {
		b.dropped++
		return
	}
	w := len(b.t.Headers)
	row := make([]string, w)
	copy(row, rec)
	if len(rec) > w && !allEmpty(rec[w:]) {
		b.clipped++
	}
	b.t.Rows = append(b.t.Rows, row)
}

// Table returns the accumulated table, or ErrNoHeader when nothing was added.
func (b *Builder) Table() (*Table, error) {
	if b.t.Headers == nil {
		return nil, ErrNoHeader
	}
	return &b.t, nil
}

// Stats reports how many rows were dropped as empty and how many were clipped.
func (b *Builder) Stats() (dropped, clipped int) { return b.dropped, b.clipped }

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
