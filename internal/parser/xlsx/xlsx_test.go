package xlsx

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"sheetsync/internal/parser"
)

// workbook builds an in-memory workbook with the given sheets, each written
// row by row from A1.
func workbook(t *testing.T, sheets map[string][][]any, order ...string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			row := row
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestParse_FirstSheet(t *testing.T) {
	t.Parallel()

	buf := workbook(t, map[string][][]any{
		"Cities": {
			{"city", "population"},
			{"Springfield", 1234},
			{"Shelbyville"},
		},
		"Other": {{"x"}},
	}, "Cities", "Other")

	tab, err := NewParser(Options{}).Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(tab.Headers, []string{"city", "population"}) {
		t.Fatalf("headers = %q", tab.Headers)
	}
	want := [][]string{{"Springfield", "1234"}, {"Shelbyville", ""}}
	if !reflect.DeepEqual(tab.Rows, want) {
		t.Fatalf("rows = %q; want %q", tab.Rows, want)
	}
}

func TestParse_NamedSheet(t *testing.T) {
	t.Parallel()

	buf := workbook(t, map[string][][]any{
		"Readme": {{"ignore me"}},
		"Staff":  {{"ФИО", "1"}, {"Иванов", "5"}},
	}, "Readme", "Staff")

	tab, err := NewParser(Options{Sheet: "Staff"}).Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(tab.Headers, []string{"ФИО", "1"}) || len(tab.Rows) != 1 {
		t.Fatalf("table = %+v", tab)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	buf := workbook(t, map[string][][]any{"A": {{"x"}}}, "A")
	if _, err := NewParser(Options{Sheet: "B"}).Parse(buf); err == nil || !strings.Contains(err.Error(), `no sheet "B"`) {
		t.Fatalf("err = %v; want missing sheet", err)
	}

	empty := workbook(t, map[string][][]any{}, "Empty")
	if _, err := NewParser(Options{}).Parse(empty); !errors.Is(err, parser.ErrNoHeader) {
		t.Fatalf("err = %v; want ErrNoHeader", err)
	}

	if _, err := NewParser(Options{}).Parse(strings.NewReader("city,population\n")); err == nil {
		t.Fatalf("expected error for non-xlsx input")
	}
}

func TestParse_DateCellsAsISO(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer f.Close()
	const sh = "Sheet1"
	custom := "dd.mm.yyyy"
	shortDate, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatal(err)
	}
	dateTime, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		t.Fatal(err)
	}
	dotted, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	if err != nil {
		t.Fatal(err)
	}
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	cells := []struct {
		cell  string
		value any
		style int
	}{
		{"A1", "hired", 0}, {"B1", "shift", 0}, {"C1", "left", 0}, {"D1", "count", 0}, {"E1", "typed", 0},
		{"A2", day, shortDate},
		{"B2", day.Add(13*time.Hour + 30*time.Minute), dateTime},
		{"C2", day, dotted},
		{"D2", 1234, 0},
		{"E2", "03-04-24", 0},
	}
	for _, c := range cells {
		if err := f.SetCellValue(sh, c.cell, c.value); err != nil {
			t.Fatal(err)
		}
		if c.style != 0 {
			if err := f.SetCellStyle(sh, c.cell, c.cell, c.style); err != nil {
				t.Fatal(err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	tab, err := NewParser(Options{}).Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := [][]string{{"2024-03-04", "2024-03-04 13:30:00", "2024-03-04", "1234", "03-04-24"}}
	if !reflect.DeepEqual(tab.Rows, want) {
		t.Fatalf("rows = %q; want %q", tab.Rows, want)
	}
}

func TestIsDateFormatCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want bool
	}{
		{"dd.mm.yyyy", true},
		{"[$-409]mmmm d, yyyy", true},
		{"yyyy-mm-dd hh:mm", true},
		{"hh:mm:ss", false},
		{"mm:ss", false},
		{`0.00" days"`, false},
		{`#,##0;[Red]-#,##0`, false},
		{`\d0`, false},
	}
	for _, tc := range tests {
		if got := isDateFormatCode(tc.code); got != tc.want {
			t.Errorf("isDateFormatCode(%q) = %t; want %t", tc.code, got, tc.want)
		}
	}
}
