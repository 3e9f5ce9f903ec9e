package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"sheetsync/internal/config"
	"sheetsync/internal/datasource/httpds"
	"sheetsync/internal/datasource/sheets"
	"sheetsync/internal/metrics"
	"sheetsync/internal/metrics/datadog"
	"sheetsync/internal/metrics/prompush"
	"sheetsync/internal/pipeline"
	"sheetsync/internal/reconcile"
	"sheetsync/internal/schema"
	"sheetsync/internal/storage"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

// run is main without the process globals, so tests can drive it.
func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sheetsync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	s, err := config.LoadFromArgs(fs, getenv, args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}
	if s.Verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	jobs, err := s.Jobs()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}
	issues := append(config.ValidateSettings(*s), config.ValidateJobs(jobs)...)
	for _, iss := range issues {
		fmt.Fprintln(stderr, iss.Error())
	}
	if config.HasErrors(issues) {
		return exitConfig
	}

	fetcher := sheets.NewFetcher(httpds.NewClient(httpds.Config{
		Timeout:    s.HTTPTimeout,
		MaxRetries: s.HTTPRetries,
		UserAgent:  s.UserAgent,
	}))

	store, err := storage.New(ctx, storage.ConfigFromSettings(s))
	if err != nil {
		fmt.Fprintf(stderr, "FAIL | storage=%s | %v\n", s.StorageKind, err)
		return exitFailure
	}
	defer store.Close()

	if s.Validate {
		return validate(ctx, fetcher, store, jobs, stdout, stderr)
	}

	closeMetrics := setupMetrics(s)
	defer closeMetrics()

	runner := pipeline.New(fetcher, store)
	if s.Every <= 0 {
		return runAll(ctx, runner, jobs, s.Parallel, stdout, stderr)
	}
	return schedule(ctx, s.Every, func() int {
		return runAll(ctx, runner, jobs, s.Parallel, stdout, stderr)
	})
}

// runAll runs every job once, at most parallel at a time. One failing job does
// not stop the others.
func runAll(ctx context.Context, runner *pipeline.Runner, jobs []config.Job, parallel int, stdout, stderr io.Writer) int {
	type outcome struct {
		res *pipeline.Result
		err error
	}
	results := make([]outcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(max(1, parallel))
	for i, job := range jobs {
		g.Go(func() error {
			res, err := runner.Run(ctx, job)
			results[i] = outcome{res, err}
			return nil
		})
	}
	_ = g.Wait()

	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}

	code := exitOK
	for _, o := range results {
		if o.err == nil {
			fmt.Fprintln(stdout, o.res.StatusLine())
			continue
		}
		fmt.Fprintln(stderr, failLine(o.err))
		code = max(code, exitCode(o.err))
	}
	return code
}

// failLine formats a run error as the counterpart of the OK status line.
func failLine(err error) string {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		return fmt.Sprintf("FAIL | job=%s | stage=%s | %v", se.Job, se.Stage, se.Err)
	}
	return "FAIL | " + err.Error()
}

// exitCode classifies a run error.
func exitCode(err error) int {
	var ce *config.ConfigError
	var le *sheets.LinkError
	if errors.As(err, &ce) || errors.As(err, &le) {
		return exitConfig
	}
	return exitFailure
}

// schedule runs fn every interval (first run immediately) until ctx is done.
// Runs never overlap; a run still in progress when the next tick fires makes
// that tick a no-op.
func schedule(ctx context.Context, every time.Duration, fn func() int) int {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(every).StartImmediately().Do(func() {
		if code := fn(); code != exitOK {
			log.Printf("schedule: run finished with exit=%d", code)
		}
	}); err != nil {
		log.Printf("schedule: %v", err)
		return exitConfig
	}
	log.Printf("schedule: every=%s", every)
	s.StartAsync()
	<-ctx.Done()
	s.Stop()
	log.Printf("schedule: stopped")
	return exitOK
}

// validate probes every job's source and destination without changing data.
func validate(ctx context.Context, fetcher *sheets.Fetcher, store storage.Store, jobs []config.Job, stdout, stderr io.Writer) int {
	code := exitOK
	for _, job := range jobs {
		err := probeJob(ctx, fetcher, store, job)
		if err != nil {
			fmt.Fprintf(stderr, "FAIL | job=%s | %v\n", job.Name, err)
			code = max(code, exitCode(err))
			continue
		}
		fmt.Fprintf(stdout, "ok | job=%s | source=%s | target=%s\n", job.Name, job.Source, job.Table)
	}
	return code
}

func probeJob(ctx context.Context, fetcher *sheets.Fetcher, store storage.Store, job config.Job) error {
	t, err := job.TableID()
	if err != nil {
		return err
	}
	if err := fetcher.Probe(ctx, job); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	cols, err := schema.Read(ctx, store, t)
	if err != nil {
		return err
	}
	if job.ExactSchema {
		return reconcile.CheckExact(cols, job.Required)
	}
	return nil
}

// setupMetrics installs the configured backend and returns its shutdown hook.
func setupMetrics(s *config.Settings) func() {
	switch s.MetricsBackend {
	case "pushgateway":
		b, err := prompush.NewBackend("sheetsync", s.PushgatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: backend=pushgateway url=%s", s.PushgatewayURL)
		metrics.SetBackend(b)
		return func() {}
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: s.DogStatsdAddr, Namespace: "sheetsync."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: backend=datadog addr=%s", s.DogStatsdAddr)
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: close error: %v", err)
			}
		}
	default:
		return func() {}
	}
}
