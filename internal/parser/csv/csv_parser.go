// Package csv parses sheet CSV exports into a parser.Table.
//
// Exports are read leniently: quotes inside unquoted fields are kept, rows may
// have any width (the table builder pads or clips them), and a leading BOM is
// removed. A record the reader still cannot decode fails the whole parse,
// since a silently shortened table would be loaded as the new contents.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"

	"sheetsync/internal/parser"
)

// Options configures the CSV parser. The zero value parses comma-separated
// exports as Google Sheets produces them.
type Options struct {
	parser.Options

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs but not concurrency-safe.
type Parser struct{ opt Options }

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse reads every record from r. The first record is the header row.
func (p *Parser) Parse(r io.Reader) (*parser.Table, error) {
	cr := csv.NewReader(decodeBOM(r))
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	b := parser.NewBuilder(p.opt.Options)
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if first {
			rec = StripHeaderBOM(rec)
		}
		b.Add(rec)
	}

	t, err := b.Table()
	if err != nil {
		return nil, err
	}
	if dropped, clipped := b.Stats(); dropped > 0 || clipped > 0 {
		log.Printf("csv: rows=%d empty_dropped=%d clipped=%d", len(t.Rows), dropped, clipped)
	}
	return t, nil
}
