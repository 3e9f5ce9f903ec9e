package coerce

import (
	"strings"
	"time"
)

// DateLayout is the output form of every parsed date.
const DateLayout = "2006-01-02"

// Layouts tried in order. Day-first comes before month-first so an ambiguous
// "03/04/2024" is the 3rd of April; month-first only matches what day-first
// cannot ("01/31/2024").
var (
	yearFirstLayouts = []string{
		"2006-1-2",
		"2006/1/2",
		"2006.1.2",
		"20060102",
	}
	dayFirstLayouts = []string{
		"2/1/2006", "2.1.2006", "2-1-2006",
		"2/1/06", "2.1.06", "2-1-06",
		"2 January 2006", "2 Jan 2006", "2-Jan-2006", "2-Jan-06", "2 Jan 06",
		"January 2 2006", "Jan 2 2006", "January 2, 2006", "Jan 2, 2006",
		"Monday, 2 January 2006", "Mon, 2 Jan 2006",
	}
	monthFirstLayouts = []string{
		"1/2/2006", "1.2.2006", "1-2-2006",
		"1/2/06", "1.2.06", "1-2-06",
	}
)

// ParseDate parses raw with a day-first preference and returns it formatted
// as YYYY-MM-DD. A trailing time of day is ignored.
func ParseDate(raw string) (string, bool) {
	s := stripTime(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	for _, group := range [][]string{yearFirstLayouts, dayFirstLayouts, monthFirstLayouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(DateLayout), true
			}
		}
	}
	return "", false
}

// stripTime drops an ISO "T..." suffix and trailing clock fields such as
// "10:30", "10:30:00" or "10:30 PM".
func stripTime(s string) string {
	if len(s) > 10 && s[10] == 'T' && s[4] == '-' {
		return s[:10]
	}
	fields := strings.Fields(s)
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		u := strings.ToUpper(last)
		if strings.Contains(last, ":") || u == "AM" || u == "PM" {
			fields = fields[:len(fields)-1]
			continue
		}
		break
	}
	return strings.Join(fields, " ")
}
