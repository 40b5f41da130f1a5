// Command salesreport loads a dashboard config, runs the sales pipeline for
// one filter selection and prints the KPIs and chart series as JSON.
//
//	salesreport --config configs/sales.json --select province=California --select city=Sekiu,Kerby
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"salesreport/internal/config"
	"salesreport/internal/logger"
	"salesreport/internal/metrics/setup"
	"salesreport/internal/report"

	// register all backends with the storage factory.
	_ "salesreport/internal/storage/all"
)

type cliFlags struct {
	cfgPath        string
	selects        []string
	options        bool
	validate       bool
	export         bool
	verbose        bool
	metricsBackend string
	pushgatewayURL string
	dogstatsdAddr  string
}

func main() {
	var f cliFlags
	flag.StringVar(&f.cfgPath, "config", "configs/sales.json", "dashboard config JSON path")
	flag.StringArrayVar(&f.selects, "select", nil, "filter selection dim=v1,v2 (repeatable; dim= selects nothing)")
	flag.BoolVar(&f.options, "options", false, "print filter options and exit")
	flag.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&f.export, "export", false, "persist chart rows to the configured storage")
	flag.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logs")
	flag.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend (prometheus, datadog, none); overrides config")
	flag.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&f.dogstatsdAddr, "dogstatsd-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_ADDR)")
	flag.Parse()

	log := logger.New(f.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, os.Stdout, os.Stderr, log); err != nil {
		fatalf("%v", err)
	}
}

// run does everything main does except exiting, so it can be tested.
func run(ctx context.Context, f cliFlags, stdout, stderr io.Writer, log *slog.Logger) error {
	cfg, err := config.Load(f.cfgPath)
	if err != nil {
		return err
	}

	issues := config.ValidateDashboard(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid: %s", f.cfgPath)
	}
	if f.validate {
		log.Info("configuration is valid", "config", f.cfgPath)
		return nil
	}

	sel, err := parseSelects(f.selects)
	if err != nil {
		return err
	}

	backend := f.metricsBackend
	if backend == "" {
		backend = cfg.Metrics.Backend
	}
	pushURL := f.pushgatewayURL
	if pushURL == "" {
		pushURL = cfg.Metrics.PushgatewayURL
	}
	dogAddr := f.dogstatsdAddr
	if dogAddr == "" {
		dogAddr = cfg.Metrics.DogStatsdAddr
	}
	flush, _ := setup.Install(setup.Settings{
		Backend:        backend,
		PushgatewayURL: pushURL,
		DogStatsdAddr:  dogAddr,
		Job:            cfg.Job,
	}, log)
	defer flush()

	start := time.Now()
	log.Debug("pipeline: starting", "job", cfg.Job, "sources", len(cfg.Sources), "storage", cfg.Storage.Kind)

	ds, closeFn, err := report.Open(ctx, cfg, nil, report.Options{Logger: log})
	if err != nil {
		return err
	}
	defer closeFn()

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if f.options {
		return enc.Encode(ds.Options())
	}

	res, err := ds.Run(sel)
	if err != nil {
		return err
	}
	if res.Empty {
		log.Warn("report: selection matches no rows", "selection", sel.String())
	}

	if f.export {
		repo, err := report.ExportRepository(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer repo.Close()
		if _, err := ds.Export(ctx, repo, res, cfg.Storage.DB.BatchSize, log); err != nil {
			return err
		}
	}

	log.Debug("pipeline: completed", "rows", res.Rows, "took", time.Since(start).Truncate(time.Millisecond))
	return enc.Encode(res)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
