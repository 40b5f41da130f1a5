// Package datadog forwards pipeline metrics to a DogStatsD agent.
package datadog

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/DataDog/datadog-go/v5/statsd"

	"salesreport/internal/metrics"
)

// sink is the part of *statsd.Client the backend sends through.
type sink interface {
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	Close() error
}

// Config selects the agent and the tags stamped on every sample.
type Config struct {
	Addr       string   // "127.0.0.1:8125" or "unix:///var/run/datadog/dsd.socket"
	Namespace  string   // metric name prefix, e.g. "salesreport."
	GlobalTags []string // e.g. "env:prod", "job:wwi_sales"
}

// Backend implements metrics.Backend on DogStatsD. Labels are sent as
// sorted "key:value" tags.
type Backend struct {
	out sink
}

var _ metrics.Backend = (*Backend)(nil)

func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("datadog: agent address is empty")
	}
	var opts []statsd.Option
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: dial %s: %w", cfg.Addr, err)
	}
	return &Backend{out: c}, nil
}

// IncCounter sends a count. DogStatsD counts are integral, so delta is
// rounded to the nearest whole number.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.out == nil {
		return
	}
	_ = b.out.Count(name, int64(math.Round(delta)), tags(labels), 1)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.out == nil {
		return
	}
	_ = b.out.Histogram(name, value, tags(labels), 1)
}

// Flush drains buffered samples and closes the client. It is called once,
// when the run or server ends.
func (b *Backend) Flush() error {
	if b.out == nil {
		return nil
	}
	return b.out.Close()
}

func tags(l metrics.Labels) []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for k, v := range l {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
