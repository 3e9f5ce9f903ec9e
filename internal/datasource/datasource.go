// Package datasource defines where sheet bytes come from. Implementations
// live in subpackages: file (local paths) and httpds (HTTP downloads).
package datasource

import (
	"context"
	"io"
)

// Source opens one input document. The caller closes the returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
