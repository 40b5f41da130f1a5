// Package metrics records what the reporting pipeline did: step outcomes and
// latency, row and cell counts, export batches and coordinate lookups.
//
// Callers use the package-level Record* helpers. They write to one process
// wide Backend, a no-op until SetBackend installs a real one (see the
// prompush and datadog subpackages), so recording is always safe.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metric families emitted by the pipeline.
const (
	StepTotal           = "salesreport_step_total"
	StepDurationSeconds = "salesreport_step_duration_seconds"
	RowsTotal           = "salesreport_rows_total"
	CellsTotal          = "salesreport_cells_total"
	BatchesTotal        = "salesreport_batches_total"
	GeocodeTotal        = "salesreport_geocode_total"
)

// Labels qualify a sample. Every helper sets "job".
type Labels map[string]string

// Backend receives samples.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush hands buffered samples to the backing system. Push-style
	// backends do their network work here.
	Flush() error
}

type discard struct{}

func (discard) IncCounter(string, float64, Labels)       {}
func (discard) ObserveHistogram(string, float64, Labels) {}
func (discard) Flush() error                             { return nil }

type holder struct{ Backend }

var active atomic.Pointer[holder]

func init() { active.Store(&holder{discard{}}) }

// SetBackend replaces the process backend. nil is ignored.
func SetBackend(b Backend) {
	if b != nil {
		active.Store(&holder{b})
	}
}

func current() Backend { return active.Load().Backend }

// Flush flushes the active backend.
func Flush() error { return current().Flush() }

// RecordStep counts one run of a pipeline step and observes its duration.
// status is "success" or "failure" depending on err.
func RecordStep(job, step string, err error, d time.Duration) {
	l := Labels{"job": job, "step": step, "status": "success"}
	if err != nil {
		l["status"] = "failure"
	}
	b := current()
	b.IncCounter(StepTotal, 1, l)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), l)
}

func count(name string, n int64, l Labels) {
	if n > 0 {
		current().IncCounter(name, float64(n), l)
	}
}

// RecordRows adds n rows of the given kind: loaded, joined, unmatched,
// filtered or exported. Non-positive n is ignored.
func RecordRows(job, kind string, n int64) {
	count(RowsTotal, n, Labels{"job": job, "kind": kind})
}

// RecordCells adds n coercion outcomes ("coerced" or "missing") for column.
func RecordCells(job, column, kind string, n int64) {
	count(CellsTotal, n, Labels{"job": job, "column": column, "kind": kind})
}

func RecordBatches(job string, n int64) {
	count(BatchesTotal, n, Labels{"job": job})
}

// RecordGeocode counts one lookup with outcome "hit", "miss" or "error".
func RecordGeocode(job, outcome string) {
	count(GeocodeTotal, 1, Labels{"job": job, "outcome": outcome})
}
