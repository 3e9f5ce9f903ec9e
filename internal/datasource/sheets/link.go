package sheets

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"sheetsync/internal/config"
)

var (
	sheetIDRe = regexp.MustCompile(`/spreadsheets/d/([^/?#]+)`)
	gidRe     = regexp.MustCompile(`[?&#]gid=(\d+)`)
)

// LinkError reports a Google Sheets link that cannot be turned into an export
// URL.
type LinkError struct {
	Link   string
	Reason string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("sheets: bad Google Sheets link %q: %s", e.Link, e.Reason)
}

// IsSheetsLink reports whether ref points at the Google Sheets UI.
func IsSheetsLink(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil || u.Host != "docs.google.com" {
		return false
	}
	return sheetIDRe.MatchString(u.Path)
}

// IsRemote reports whether ref is fetched over HTTP rather than read from disk.
func IsRemote(ref string) bool {
	l := strings.ToLower(ref)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// ExportURL turns a Sheets UI link (…/spreadsheets/d/<id>/edit?gid=<n>#gid=<n>)
// into its export link. A csv export covers one sheet and needs the gid; an
// xlsx export covers the whole workbook. Any other reference is returned
// unchanged.
func ExportURL(ref, format string) (string, error) {
	if !IsSheetsLink(ref) {
		return ref, nil
	}
	id := sheetIDRe.FindStringSubmatch(ref)[1]
	switch format {
	case config.FormatXLSX:
		return "https://docs.google.com/spreadsheets/d/" + id + "/export?format=xlsx", nil
	case config.FormatCSV, "":
		m := gidRe.FindStringSubmatch(ref)
		if m == nil {
			return "", &LinkError{Link: ref, Reason: "a csv export needs gid=<n> in the link"}
		}
		return "https://docs.google.com/spreadsheets/d/" + id + "/export?format=csv&gid=" + m[1], nil
	default:
		return "", &LinkError{Link: ref, Reason: fmt.Sprintf("unsupported format %q", format)}
	}
}
