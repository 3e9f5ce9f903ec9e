package xlsx

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Built-in number formats that render a calendar date. 14-17 and 22 are the
// locale-independent ones; excelize renders 14 as US "mm-dd-yy".
var builtinDateFormats = map[int]bool{14: true, 15: true, 16: true, 17: true, 22: true}

// dateCells rewrites date-formatted cells of a worksheet to ISO text
// ("2024-03-04", or "2024-03-04 13:30:00" with a time of day). The display
// text of such cells depends on the number format and is often month-first.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	isDate   map[int]bool // style id → renders a date
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet, isDate: map[int]bool{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// rewrite replaces date cells of row (1-based) in rec.
func (d *dateCells) rewrite(row int, rec []string) error {
	for i, v := range rec {
		if !strings.ContainsAny(v, "0123456789") {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		ok, err := d.dateStyled(cell)
		if err != nil || !ok {
			return err
		}
		raw, err := d.f.GetCellValue(d.sheet, cell, excelize.Options{RawCellValue: true})
		if err != nil {
			return err
		}
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue // a string that merely carries a date style
		}
		t, err := excelize.ExcelDateToTime(serial, d.date1904)
		if err != nil {
			continue
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			rec[i] = t.Format("2006-01-02")
		} else {
			rec[i] = t.Format("2006-01-02 15:04:05")
		}
	}
	return nil
}

func (d *dateCells) dateStyled(cell string) (bool, error) {
	id, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil {
		return false, err
	}
	if v, ok := d.isDate[id]; ok {
		return v, nil
	}
	v := false
	if style, err := d.f.GetStyle(id); err == nil {
		switch {
		case builtinDateFormats[style.NumFmt]:
			v = true
		case style.CustomNumFmt != nil:
			v = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	d.isDate[id] = v
	return v, nil
}

// isDateFormatCode reports whether a custom number format shows a day or a
// year. Quoted literals, escapes and bracketed sections ([Red], [$-409]) are
// skipped. A bare "m" is ambiguous with minutes and alone does not count.
func isDateFormatCode(code string) bool {
	section, _, _ := strings.Cut(code, ";")
	inQuote, inBracket := false, false
	for i := 0; i < len(section); i++ {
		c := section[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\':
			i++
		case c == 'd' || c == 'D' || c == 'y' || c == 'Y':
			return true
		}
	}
	return false
}
