// Package header canonicalizes raw spreadsheet column labels so they can be
// matched against destination column names.
//
// Labels typed by people drift: embedded line breaks from wrapped cells,
// doubled spaces, trailing blanks, mixed case and composed vs decomposed
// accents. Normalize removes that drift; ApplyAliases then maps what is left
// onto canonical column names.
package header

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"sheetsync/internal/config"
)

// Options controls per-job normalization.
type Options struct {
	// Lowercase folds labels to lower case. Destinations with case-sensitive
	// identifiers usually want this off.
	Lowercase bool
}

var lower = cases.Lower(language.Und)

// Label normalizes a single label. It is idempotent.
func Label(s string, opts Options) string {
	s = norm.NFC.String(s)
	// strings.Fields splits on every Unicode space, which covers CR/LF runs,
	// tabs and no-break spaces alike.
	s = strings.Join(strings.Fields(s), " ")
	if opts.Lowercase {
		s = norm.NFC.String(lower.String(s))
	}
	return s
}

// Normalize returns a new slice with every label normalized.
func Normalize(labels []string, opts Options) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = Label(l, opts)
	}
	return out
}

// ApplyAliases replaces every label that equals an alias key with the alias
// target. Keys are normalized with opts first, so aliases can be written the
// way they appear in the sheet. When several aliases share a key, the first
// one declared wins. Labels with no alias pass through unchanged; duplicate
// results are left for the reconciler.
func ApplyAliases(labels []string, aliases config.AliasTable, opts Options) []string {
	out := make([]string, len(labels))
	if len(aliases) == 0 {
		copy(out, labels)
		return out
	}
	m := make(map[string]string, len(aliases))
	for _, a := range aliases {
		k := Label(a.From, opts)
		if _, seen := m[k]; !seen {
			m[k] = a.To
		}
	}
	for i, l := range labels {
		if to, ok := m[l]; ok {
			out[i] = to
		} else {
			out[i] = l
		}
	}
	return out
}

// Canonical is Normalize followed by ApplyAliases.
func Canonical(labels []string, aliases config.AliasTable, opts Options) []string {
	return ApplyAliases(Normalize(labels, opts), aliases, opts)
}
