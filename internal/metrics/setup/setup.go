// Package setup installs the metrics backend chosen by flag, environment or
// dashboard config.
package setup

import (
	"log/slog"
	"os"
	"strings"

	"salesreport/internal/metrics"
	"salesreport/internal/metrics/datadog"
	"salesreport/internal/metrics/prompush"
)

// Settings name a backend and its endpoint. Empty fields fall back to
// METRICS_BACKEND, PUSHGATEWAY_URL and DD_DOGSTATSD_ADDR.
type Settings struct {
	Backend        string
	PushgatewayURL string
	DogStatsdAddr  string
	Job            string
}

func (s Settings) resolved() Settings {
	if s.Backend == "" {
		s.Backend = os.Getenv("METRICS_BACKEND")
	}
	if s.PushgatewayURL == "" {
		s.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	}
	if s.PushgatewayURL == "" {
		s.PushgatewayURL = "http://localhost:9091"
	}
	if s.DogStatsdAddr == "" {
		s.DogStatsdAddr = os.Getenv("DD_DOGSTATSD_ADDR")
	}
	if s.DogStatsdAddr == "" {
		s.DogStatsdAddr = "127.0.0.1:8125"
	}
	if s.Job == "" {
		s.Job = "salesreport"
	}
	return s
}

// Install sets the global metrics backend and returns the func that flushes
// it. A backend that fails to initialize leaves the nop backend in place;
// metrics never stop a run.
func Install(s Settings, log *slog.Logger) (flush func(), name string) {
	s = s.resolved()
	noop := func() {}

	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(s.Backend) {
	case "prometheus", "pushgateway":
		b, err = prompush.NewBackend(s.Job, s.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       s.DogStatsdAddr,
			Namespace:  "salesreport.",
			GlobalTags: []string{"job:" + s.Job},
		})
	case "", "none":
		log.Debug("metrics: disabled", "backend", s.Backend)
		return noop, "none"
	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", s.Backend)
		return noop, "none"
	}
	if err != nil {
		log.Warn("metrics: backend init failed; using nop", "backend", s.Backend, "err", err)
		return noop, "none"
	}

	metrics.SetBackend(b)
	log.Info("metrics: enabled", "backend", s.Backend, "job", s.Job)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", "err", err)
		}
	}, strings.ToLower(s.Backend)
}
