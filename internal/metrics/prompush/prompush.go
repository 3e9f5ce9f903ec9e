// Package prompush pushes sync metrics to a Prometheus Pushgateway.
//
// A sync run is a short-lived batch job, so metrics are pushed at the end of
// each run instead of being scraped. All Prometheus dependencies stay in this
// package.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"sheetsync/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
//
// The generic "job" label becomes "sync_job" here, because Pushgateway
// reserves "job" for the grouping key.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	rowCounter    *prometheus.CounterVec
	modeCounter   *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend constructs a Pushgateway backend. jobName is the Pushgateway
// grouping job and defaults to "sheetsync".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "sheetsync"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stageCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StageTotal,
			Help: "Sync stage executions by job, stage and status.",
		}, []string{"sync_job", "stage", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.StageDuration,
			Help:    "Sync stage duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"sync_job", "stage", "status"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows fetched, cleared and loaded per job.",
		}, []string{"sync_job", "kind"}),
		modeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.LoadModeTotal,
			Help: "Completed loads by clear mode (full-lock, delete-fallback).",
		}, []string{"sync_job", "mode"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metrics.LastSuccessUnix,
			Help: "Unix time of the last successful load per job.",
		}, []string{"sync_job"}),
	}

	for _, c := range []prometheus.Collector{b.stageCounter, b.stageDuration, b.rowCounter, b.modeCounter, b.lastSuccess} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StageTotal:
		b.stageCounter.WithLabelValues(labels["job"], labels["stage"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rowCounter.WithLabelValues(labels["job"], labels["kind"]).Add(delta)
	case metrics.LoadModeTotal:
		b.modeCounter.WithLabelValues(labels["job"], labels["mode"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StageDuration {
		return
	}
	b.stageDuration.WithLabelValues(labels["job"], labels["stage"], labels["status"]).Observe(value)
}

func (b *Backend) SetGauge(name string, value float64, labels metrics.Labels) {
	if name != metrics.LastSuccessUnix {
		return
	}
	b.lastSuccess.WithLabelValues(labels["job"]).Set(value)
}

// Flush pushes the current registry to the Pushgateway, replacing the group.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push()
}
