// Package prompush pushes pipeline metrics to a Prometheus Pushgateway.
// A report run is short-lived, so nothing is scraped; Flush pushes the whole
// registry under the job's grouping key.
package prompush

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"salesreport/internal/metrics"
)

// counterDef describes one counter family and the labels it keeps. The job
// label is dropped everywhere since it is the grouping key.
type counterDef struct {
	name   string
	help   string
	labels []string
}

var counterDefs = []counterDef{
	{metrics.StepTotal, "Pipeline steps run, by step and status.", []string{"step", "status"}},
	{metrics.RowsTotal, "Rows seen per stage (loaded, joined, filtered, exported).", []string{"kind"}},
	{metrics.CellsTotal, "Numeric coercion outcomes per column.", []string{"column", "kind"}},
	{metrics.BatchesTotal, "Export batches written.", nil},
	{metrics.GeocodeTotal, "Coordinate lookups per outcome.", []string{"outcome"}},
}

type counter struct {
	vec    *prometheus.CounterVec
	labels []string
}

// Backend implements metrics.Backend on a private registry.
type Backend struct {
	pusher   *push.Pusher
	reg      *prometheus.Registry
	counters map[string]counter
	steps    *prometheus.SummaryVec
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend registers the pipeline collectors and prepares a pusher for
// gatewayURL. An empty job falls back to "salesreport".
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, errors.New("prompush: pushgateway URL is empty")
	}
	if job == "" {
		job = "salesreport"
	}

	b := &Backend{
		reg:      prometheus.NewRegistry(),
		counters: make(map[string]counter, len(counterDefs)),
		steps: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Pipeline step latency in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
	}
	if err := b.reg.Register(b.steps); err != nil {
		return nil, fmt.Errorf("prompush: register %s: %w", metrics.StepDurationSeconds, err)
	}
	for _, d := range counterDefs {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: d.name, Help: d.help}, d.labels)
		if err := b.reg.Register(vec); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", d.name, err)
		}
		b.counters[d.name] = counter{vec: vec, labels: d.labels}
	}
	b.pusher = push.New(gatewayURL, job).Gatherer(b.reg)
	return b, nil
}

// values picks the label values named by keys; absent labels become "".
func values(keys []string, l metrics.Labels) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = l[k]
	}
	return out
}

// IncCounter adds delta to a known counter. Unknown names are dropped.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	c, ok := b.counters[name]
	if !ok {
		return
	}
	c.vec.WithLabelValues(values(c.labels, labels)...).Add(delta)
}

// ObserveHistogram only knows the step latency summary.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.steps == nil {
		return
	}
	b.steps.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush replaces the job's metric group on the gateway.
func (b *Backend) Flush() error {
	if b.pusher == nil {
		return nil
	}
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
