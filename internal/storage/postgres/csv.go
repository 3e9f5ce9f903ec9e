package postgres

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// nullMarker is the unquoted NULL token declared in copySQL.
const nullMarker = `\N`

// writeCSV renders a header line and rows in the CSV dialect COPY expects.
// Every non-NULL text value is quoted so that an empty string and a quoted
// `\N` both survive as text; NULL is the bare marker.
func writeCSV(w io.Writer, columns []string, rows [][]any) error {
	bw := bufio.NewWriter(w)
	for i, c := range columns {
		if i > 0 {
			bw.WriteByte(',')
		}
		writeQuoted(bw, c)
	}
	bw.WriteByte('\n')

	for r, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("postgres: row %d has %d values, want %d", r, len(row), len(columns))
		}
		for i, v := range row {
			if i > 0 {
				bw.WriteByte(',')
			}
			writeValue(bw, v)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func writeValue(bw *bufio.Writer, v any) {
	switch x := v.(type) {
	case nil:
		bw.WriteString(nullMarker)
	case string:
		writeQuoted(bw, x)
	case int64:
		bw.WriteString(strconv.FormatInt(x, 10))
	case int:
		bw.WriteString(strconv.Itoa(x))
	case float64:
		bw.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case bool:
		bw.WriteString(strconv.FormatBool(x))
	case time.Time:
		writeQuoted(bw, x.Format(time.RFC3339Nano))
	default:
		writeQuoted(bw, fmt.Sprint(x))
	}
}

func writeQuoted(bw *bufio.Writer, s string) {
	bw.WriteByte('"')
	bw.WriteString(strings.ReplaceAll(s, `"`, `""`))
	bw.WriteByte('"')
}
