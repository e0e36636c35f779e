// Package prompush implements Prometheus backends for the metrics package.
//
// NewBackend registers the collectors on a private registry and pushes it to
// a Pushgateway on Flush, for the short-lived CLI. NewScrapeBackend registers
// the same collectors on a caller's registry that a long-running server
// exposes on /metrics.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"schemagen/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091; empty in scrape mode
	jobName    string // Pushgateway "job" group
	reg        prometheus.Gatherer

	stepCounter  *prometheus.CounterVec
	stepDuration *prometheus.SummaryVec
	itemCounter  *prometheus.CounterVec
	batchCounter prometheus.Counter
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName is the Pushgateway "job" grouping key; gatewayURL is the base URL of
// the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	reg := prometheus.NewRegistry()
	b, err := newBackend(jobName, reg)
	if err != nil {
		return nil, err
	}
	b.gatewayURL = gatewayURL
	b.reg = reg
	return b, nil
}

// NewScrapeBackend registers the collectors on reg. Flush is a no-op; the
// owner of reg serves it, e.g. with promhttp.HandlerFor.
func NewScrapeBackend(jobName string, reg prometheus.Registerer) (*Backend, error) {
	if reg == nil {
		return nil, fmt.Errorf("prompush: registerer is required")
	}
	return newBackend(jobName, reg)
}

func newBackend(jobName string, reg prometheus.Registerer) (*Backend, error) {
	if jobName == "" {
		jobName = "schemagen"
	}

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Total number of generation steps, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Duration of generation steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	itemCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.ItemsTotal,
			Help: "Item counts per kind (types, columns, files, rows_saved, ...).",
		},
		[]string{"kind"},
	)
	batchCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Total number of insert batches flushed by the binder.",
		},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":  stepCounter,
		"step summary":  stepDuration,
		"item counter":  itemCounter,
		"batch counter": batchCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		jobName:      jobName,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		itemCounter:  itemCounter,
		batchCounter: batchCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.ItemsTotal:
		if b.itemCounter == nil {
			return
		}
		b.itemCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.BatchesTotal:
		if b.batchCounter == nil {
			return
		}
		b.batchCounter.Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway. It does nothing for
// a scrape backend.
func (b *Backend) Flush() error {
	if b.gatewayURL == "" || b.reg == nil {
		return nil
	}
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
