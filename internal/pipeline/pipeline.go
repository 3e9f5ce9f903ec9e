// Package pipeline runs one configured job end to end: fetch the sheet,
// read the destination schema, reconcile headers against it, coerce the
// cells, and replace the table contents.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"sheetsync/internal/coerce"
	"sheetsync/internal/config"
	"sheetsync/internal/datasource/sheets"
	"sheetsync/internal/header"
	"sheetsync/internal/loader"
	"sheetsync/internal/metrics"
	"sheetsync/internal/reconcile"
	"sheetsync/internal/schema"
	"sheetsync/internal/storage"
)

// Stage names used in errors, logs and metrics.
const (
	StageConfig    = "config"
	StageFetch     = "fetch"
	StageSchema    = "schema"
	StageReconcile = "reconcile"
	StageLoad      = "load"
)

// StageError names the job and stage a run failed in.
type StageError struct {
	Job   string
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("job %s: %s: %v", e.Job, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Fetcher resolves a job's source to a parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, job config.Job) (*sheets.Document, error)
}

// Result summarizes a successful run.
type Result struct {
	RunID       string
	Job         string
	Table       config.TableID
	Rows        int64
	Cols        int
	Mode        loader.Mode
	RowsCleared int64
	Fingerprint string
	Duration    time.Duration
}

// StatusLine is the one-line summary printed after a successful run.
func (r *Result) StatusLine() string {
	return fmt.Sprintf("OK | rows=%d | cols=%d | target=%s | mode=%s", r.Rows, r.Cols, r.Table, r.Mode)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLoaderOptions passes options to the replacement loader.
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(r *Runner) { r.loaderOpts = append(r.loaderOpts, opts...) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// Runner executes jobs against one destination store.
type Runner struct {
	fetch      Fetcher
	store      storage.Store
	loaderOpts []loader.Option
	now        func() time.Time
}

// New returns a Runner.
func New(fetch Fetcher, store storage.Store, opts ...Option) *Runner {
	r := &Runner{fetch: fetch, store: store, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes job once. Any failure is a *StageError.
func (r *Runner) Run(ctx context.Context, job config.Job) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Job: job.Name}
	start := r.now()
	logf := func(format string, args ...any) {
		log.Printf("pipeline: job=%s run=%s "+format, append([]any{job.Name, res.RunID}, args...)...)
	}
	fail := func(stage string, began time.Time, err error) (*Result, error) {
		metrics.RecordStage(job.Name, stage, err, r.now().Sub(began))
		logf("stage=%s err=%v", stage, err)
		return nil, &StageError{Job: job.Name, Stage: stage, Err: err}
	}
	done := func(stage string, began time.Time) {
		metrics.RecordStage(job.Name, stage, nil, r.now().Sub(began))
	}

	t, err := job.TableID()
	if err != nil {
		return fail(StageConfig, start, err)
	}
	res.Table = t
	logf("start source=%q target=%s", job.Source, t)

	began := r.now()
	doc, err := r.fetch.Fetch(ctx, job)
	if err != nil {
		return fail(StageFetch, began, err)
	}
	done(StageFetch, began)
	res.Fingerprint = doc.Fingerprint
	metrics.RecordRows(job.Name, "fetched", int64(len(doc.Table.Rows)))
	logf("fetched rows=%d headers=%d", len(doc.Table.Rows), len(doc.Table.Headers))

	began = r.now()
	cols, err := schema.Read(ctx, r.store, t)
	if err == nil && job.ExactSchema {
		err = reconcile.CheckExact(cols, job.Required)
	}
	if err != nil {
		return fail(StageSchema, began, err)
	}
	done(StageSchema, began)

	began = r.now()
	hopts := header.Options{Lowercase: job.LowercaseHeaders}
	input := header.Canonical(doc.Table.Headers, job.Aliases, hopts)
	if dups := reconcile.Duplicates(input); len(dups) > 0 {
		logf("duplicate headers %v; loading the first occurrence of each", dups)
	}
	plan, err := reconcile.Reconcile(input, cols, job.Required, job.Exclude)
	if err != nil {
		return fail(StageReconcile, began, err)
	}
	done(StageReconcile, began)
	logf("plan columns=%v", plan.Names())

	rows := coerce.Table(doc.Table.Rows, reconcile.Index(input, plan), plan, coerce.Options{EmptyTextAsNull: job.EmptyTextAsNull})

	began = r.now()
	out, err := loader.New(r.store, r.loaderOpts...).Load(ctx, t, plan, rows)
	if err != nil {
		return fail(StageLoad, began, err)
	}
	done(StageLoad, began)

	res.Rows = out.RowsLoaded
	res.Cols = len(plan)
	res.Mode = out.Mode
	res.RowsCleared = out.RowsCleared
	res.Duration = r.now().Sub(start)

	metrics.RecordRows(job.Name, "loaded", out.RowsLoaded)
	metrics.RecordRows(job.Name, "cleared", out.RowsCleared)
	metrics.RecordLoad(job.Name, string(out.Mode), r.now())
	logf("%s elapsed=%s", res.StatusLine(), res.Duration.Truncate(time.Millisecond))
	return res, nil
}
