// Package xlsx parses spreadsheet workbooks (the xlsx export of a sheet) into
// a parser.Table using excelize.
package xlsx

import (
	"fmt"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"

	"sheetsync/internal/parser"
)

// Options configures the workbook parser.
type Options struct {
	parser.Options

	// Sheet names the worksheet to read. Empty means the first one.
	Sheet string
}

// Parser reads one worksheet of a workbook.
type Parser struct{ opt Options }

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse reads the selected worksheet. Cells come back as their formatted
// display text, except date-formatted cells, which are written as ISO dates
// whatever their number format shows.
func (p *Parser) Parse(r io.Reader) (*parser.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx: workbook has no sheets")
	}
	sheet := sheets[0]
	if p.opt.Sheet != "" {
		if !slices.Contains(sheets, p.opt.Sheet) {
			return nil, fmt.Errorf("xlsx: no sheet %q (have %v)", p.opt.Sheet, sheets)
		}
		sheet = p.opt.Sheet
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: sheet %q: %w", sheet, err)
	}
	defer func() { _ = rows.Close() }()

	dates := newDateCells(f, sheet)
	b := parser.NewBuilder(p.opt.Options)
	for row := 1; rows.Next(); row++ {
		rec, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("xlsx: sheet %q: %w", sheet, err)
		}
		if err := dates.rewrite(row, rec); err != nil {
			return nil, fmt.Errorf("xlsx: sheet %q row %d: %w", sheet, row, err)
		}
		b.Add(rec)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("xlsx: sheet %q: %w", sheet, err)
	}
	return b.Table()
}
