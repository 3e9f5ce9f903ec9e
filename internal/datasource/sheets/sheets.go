// Package sheets resolves a job's source reference to a parsed table.
//
// A source is a Google Sheets UI link, a direct http(s) URL, or a local path.
// Sheets links are rewritten to their export URL. Downloads that come back as
// HTML (a sign-in or "file not found" page served with status 200) are
// rejected before parsing.
package sheets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/zeebo/xxh3"

	"sheetsync/internal/config"
	"sheetsync/internal/datasource"
	"sheetsync/internal/datasource/file"
	"sheetsync/internal/datasource/httpds"
	"sheetsync/internal/parser"
	pcsv "sheetsync/internal/parser/csv"
	"sheetsync/internal/parser/xlsx"
)

// sniffLen is how much of the body is checked for an HTML page.
const sniffLen = 200

// DefaultMaxBytes caps a single download.
const DefaultMaxBytes = 256 << 20

// NotTabularError means the source returned an HTML page instead of data,
// usually because the sheet is private or the link is wrong.
type NotTabularError struct {
	URL  string
	Head string // first bytes of the body
}

func (e *NotTabularError) Error() string {
	return fmt.Sprintf("sheets: %s returned HTML instead of data (sheet private or link wrong?)", e.URL)
}

// TooLargeError means the download exceeded the configured cap.
type TooLargeError struct {
	URL   string
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("sheets: %s is larger than %d bytes", e.URL, e.Limit)
}

// Document is a fetched and parsed source.
type Document struct {
	Table       *parser.Table
	URL         string // resolved export URL or local path
	Bytes       int
	Fingerprint string // xxh3 of the raw bytes, hex
}

// Fetcher downloads and parses job sources.
type Fetcher struct {
	client   *httpds.Client
	maxBytes int64
}

// NewFetcher returns a Fetcher that downloads with client.
func NewFetcher(client *httpds.Client) *Fetcher {
	return &Fetcher{client: client, maxBytes: DefaultMaxBytes}
}

// WithMaxBytes returns a copy of f with a different download cap.
func (f *Fetcher) WithMaxBytes(n int64) *Fetcher {
	c := *f
	c.maxBytes = n
	return &c
}

// Fetch resolves, downloads and parses the job's source.
func (f *Fetcher) Fetch(ctx context.Context, job config.Job) (*Document, error) {
	format := job.SourceFormat()
	ref, err := ExportURL(job.Source, format)
	if err != nil {
		return nil, err
	}

	body, err := f.read(ctx, ref)
	if err != nil {
		return nil, err
	}
	if IsHTML(body) {
		return nil, &NotTabularError{URL: ref, Head: string(body[:min(len(body), sniffLen)])}
	}

	doc := &Document{
		URL:         ref,
		Bytes:       len(body),
		Fingerprint: fmt.Sprintf("%016x", xxh3.Hash(body)),
	}
	log.Printf("sheets: fetched url=%s bytes=%d xxh3=%s", ref, doc.Bytes, doc.Fingerprint)

	popt := parser.Options{KeepEmptyRows: job.KeepEmptyRows}
	var p parser.Parser
	switch format {
	case config.FormatXLSX:
		p = xlsx.NewParser(xlsx.Options{Options: popt, Sheet: job.Sheet})
	default:
		p = pcsv.NewParser(pcsv.Options{Options: popt})
	}
	t, err := p.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ref, err)
	}
	doc.Table = t
	return doc, nil
}

// Probe checks that a source is reachable and not an HTML page without
// downloading all of it. Local paths only need to exist.
func (f *Fetcher) Probe(ctx context.Context, job config.Job) error {
	ref, err := ExportURL(job.Source, job.SourceFormat())
	if err != nil {
		return err
	}
	if !IsRemote(ref) {
		_, err := os.Stat(ref)
		return err
	}
	head, err := f.client.FetchFirstBytes(ctx, ref, sniffLen)
	if err != nil {
		return err
	}
	if IsHTML(head) {
		return &NotTabularError{URL: ref, Head: string(head)}
	}
	return nil
}

func (f *Fetcher) source(ref string) datasource.Source {
	if IsRemote(ref) {
		return f.client.Source(ref)
	}
	return file.NewLocal(ref)
}

func (f *Fetcher) read(ctx context.Context, ref string) ([]byte, error) {
	rc, err := f.source(ref).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &TooLargeError{URL: ref, Limit: f.maxBytes}
	}
	return body, nil
}

// IsHTML reports whether the start of body looks like an HTML page.
func IsHTML(body []byte) bool {
	head := bytes.ToLower(body[:min(len(body), sniffLen)])
	return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("doctype html"))
}
