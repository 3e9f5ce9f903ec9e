package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLocalOpen covers success, missing file, and pre-canceled context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := filepath.Join(dir, "cities.csv")
	const payload = "city,population\nSpringfield,1234\n"
	if err := os.WriteFile(existing, []byte(payload), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name            string
		path            string
		ctx             context.Context
		wantErrIs       error
		wantErrContains string
		wantContent     string
	}{
		{name: "reads_content", path: existing, ctx: context.Background(), wantContent: payload},
		{name: "missing_file", path: filepath.Join(dir, "missing.csv"), ctx: context.Background(), wantErrIs: os.ErrNotExist, wantErrContains: "open "},
		{name: "pre_canceled_context", path: existing, ctx: canceled, wantErrIs: context.Canceled},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			rc, err := NewLocal(c.path).Open(c.ctx)
			if c.wantErrIs != nil {
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("errors.Is(%v, %v) = false", err, c.wantErrIs)
				}
				if c.wantErrContains != "" && !strings.Contains(err.Error(), c.wantErrContains) {
					t.Fatalf("error %q does not contain %q", err, c.wantErrContains)
				}
				if rc != nil {
					_ = rc.Close()
					t.Fatalf("got non-nil ReadCloser on error: %T", rc)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("reading: %v", err)
			}
			if string(got) != c.wantContent {
				t.Fatalf("content mismatch: got %q, want %q", got, c.wantContent)
			}
		})
	}
}
