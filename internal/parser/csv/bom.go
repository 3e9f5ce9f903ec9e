package csv

import (
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const utf8BOM = "\uFEFF"

// decodeBOM returns a reader that consumes a leading byte-order mark. UTF-8
// input passes through unchanged; a UTF-16 BOM switches decoding to UTF-16 so
// Excel "Unicode text" exports parse as well.
func decodeBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// StripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
// It catches a BOM that survived an earlier re-encoding of the file.
func StripHeaderBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	return headers
}
