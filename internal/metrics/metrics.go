// Package metrics records sync run metrics through a pluggable backend.
//
// The package exposes a narrow Backend interface (counters, histograms,
// gauges) and a process-wide backend that defaults to a no-op, so callers can
// always record without checking whether metrics are configured. Concrete
// systems live in subpackages (prompush, datadog).
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StageTotal      = "sheetsync_stage_total"
	StageDuration   = "sheetsync_stage_duration_seconds"
	RowsTotal       = "sheetsync_rows_total"
	LoadModeTotal   = "sheetsync_load_mode_total"
	LastSuccessUnix = "sheetsync_last_success_timestamp_seconds"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge sets a gauge to value.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) SetGauge(string, float64, Labels)         {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error { return current().Flush() }

// RecordStage counts one stage execution (fetch, schema, reconcile, coerce,
// load) and its duration.
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "stage": stage, "status": status}
	b := current()
	b.IncCounter(StageTotal, 1, lbls)
	b.ObserveHistogram(StageDuration, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given kind ("fetched", "loaded",
// "cleared").
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordLoad counts a completed load by clear mode and stamps the job's last
// success time.
func RecordLoad(job, mode string, at time.Time) {
	b := current()
	b.IncCounter(LoadModeTotal, 1, Labels{"job": job, "mode": mode})
	b.SetGauge(LastSuccessUnix, float64(at.Unix()), Labels{"job": job})
}
