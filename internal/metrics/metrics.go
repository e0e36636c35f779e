// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from schema generation runs.
//
//   - Backend is a narrow interface over counters and timing data.
//   - The global backend defaults to a no-op, so instrumentation is always
//     safe to call even when no real backend is configured.
//   - Concrete systems live in subpackages (prompush, datadog).
//
// Steps instrumented by the CLI include "load", "validate", "generate",
// "emit", "write" and "apply".
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal           = "schemagen_step_total"
	StepDurationSeconds = "schemagen_step_duration_seconds"
	ItemsTotal          = "schemagen_items_total"
	BatchesTotal        = "schemagen_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
// Call it once during startup, before any goroutine records metrics.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep records the latency and outcome of one step.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordCount increments an item counter for the given job and kind.
//
// Kinds used by the CLI and the binder:
//   - "types"        record types generated
//   - "columns"      columns across all generated tables
//   - "invalid"      record types rejected by validation
//   - "files"        files written
//   - "rows_saved"   rows inserted by the binder
//   - "rows_loaded"  rows read back by the binder
func RecordCount(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(ItemsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the insert batch counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
