// Command salesreport-web prepares the sales Dataset and serves it as a JSON
// API with a minimal dashboard page. Sources are re-read every
// --reload-interval (and on POST /api/reload); unchanged files are not
// parsed again.
//
// Usage:
//
//	go run ./cmd/salesreport-web --config configs/sales.json --addr :8080 --reload-interval 1m
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"salesreport/internal/config"
	"salesreport/internal/datasource/file"
	"salesreport/internal/logger"
	"salesreport/internal/metrics/setup"
	"salesreport/internal/report"
	"salesreport/internal/webui"

	_ "salesreport/internal/storage/all"
)

// server is what run needs from webui.Server.
type server interface {
	ListenAndServe() error
}

// newServer is swapped in tests.
var newServer = func(cfg webui.Config, ds *report.Dataset) server { return webui.NewServer(cfg, ds) }

func main() {
	if err := run(context.Background(), os.Args[1:], nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("salesreport-web", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	cfgPath := fs.String("config", "configs/sales.json", "dashboard config JSON path")
	origins := fs.String("cors-origins", "", "comma-separated allowed CORS origins (default localhost)")
	reloadEvery := fs.Duration("reload-interval", time.Minute, "how often to re-read the sources (0 disables)")
	metricsBackend := fs.String("metrics-backend", "", "metrics backend (prometheus, datadog, none); overrides config")
	verbose := fs.BoolP("verbose", "v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if log == nil {
		log = logger.New(*verbose)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	issues := config.ValidateDashboard(cfg)
	for _, iss := range issues {
		log.Warn("config: issue", "severity", iss.Severity, "path", iss.Path, "message", iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid: %s", *cfgPath)
	}

	backend := *metricsBackend
	if backend == "" {
		backend = cfg.Metrics.Backend
	}
	flush, _ := setup.Install(setup.Settings{
		Backend:        backend,
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
		DogStatsdAddr:  cfg.Metrics.DogStatsdAddr,
		Job:            cfg.Job,
	}, log)
	defer flush()

	reloader, err := report.NewReloader(ctx, cfg, file.NewCache(), report.Options{Logger: log})
	if err != nil {
		return err
	}
	defer reloader.Close()
	ds := reloader.Dataset()

	var allowed []string
	for _, o := range strings.Split(*origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	srv := newServer(webui.Config{
		Addr:           *addr,
		AllowedOrigins: allowed,
		Logger:         log,
		Reload:         reloader.Reload,
		ReloadInterval: *reloadEvery,
	}, ds)
	log.Info("webui: listening", "addr", *addr, "rows", ds.Table().Len(), "reload_interval", *reloadEvery)
	return srv.ListenAndServe()
}
