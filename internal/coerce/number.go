package coerce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	commaGroups  = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(,\d{3})+$`)
	dotGroups    = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(\.\d{3}){2,}$`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	spaceRemover = strings.NewReplacer(" ", "", "\u202f", "", "\u2009", "", "\t", "")
)

// normalizeNumber strips grouping spaces and rewrites the decimal separator
// to '.'. It returns "" for null sentinels.
//
// Separator rules:
//   - both ',' and '.' present: the later one is the decimal separator and
//     the other is grouping ("1.234,5", "1,234.5");
//   - only ',': grouping when it splits digits into thousands ("1,234",
//     "12,345,678"), otherwise a decimal comma ("1234,5", "0,5");
//   - several '.' in thousands form ("1.234.567"): grouping.
func normalizeNumber(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "\u00a0", "")
	if isNullSentinel(s) {
		return ""
	}
	s = spaceRemover.Replace(s)

	comma := strings.LastIndexByte(s, ',')
	dot := strings.LastIndexByte(s, '.')
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if commaGroups.MatchString(s) {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	case dot >= 0:
		if dotGroups.MatchString(s) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// ParseFloat reads a number with the separator handling of normalizeNumber.
// NaN and infinities are rejected.
func ParseFloat(raw string) (float64, bool) {
	s := normalizeNumber(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt reads an integer: a float parse truncated toward zero, falling
// back to the leading signed digit run ("12abc" → 12).
func ParseInt(raw string) (int64, bool) {
	s := normalizeNumber(raw)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		f = math.Trunc(f)
		if f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), true
		}
		return 0, false
	}
	m := leadingInt.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
