package report

import (
	"context"
	"fmt"
	"log/slog"

	"salesreport/internal/config"
	"salesreport/internal/datasource/file"
	"salesreport/internal/geocode"
	"salesreport/internal/storage"
)

// Open loads every source of cfg through cache, picks the coordinate store
// the config names and prepares the Dataset once. The returned close func
// releases the coordinate store's connection. Use a Reloader to keep the
// Dataset current.
func Open(ctx context.Context, cfg config.Dashboard, cache *file.Cache, opts Options) (*Dataset, func(), error) {
	r, err := NewReloader(ctx, cfg, cache, opts)
	if err != nil {
		return nil, nil, err
	}
	return r.Dataset(), r.Close, nil
}

// CoordinateStore returns the store configured by cfg.Geocode: a table in
// the storage backend when CacheTable is set, otherwise the CSV CacheFile.
// It returns a nil Store when neither is set.
func CoordinateStore(ctx context.Context, cfg config.Dashboard) (geocode.Store, func(), error) {
	g := cfg.Geocode
	switch {
	case g.CacheTable != "":
		repo, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DB.DSN, Table: g.CacheTable})
		if err != nil {
			return nil, nil, fmt.Errorf("coordinate store: %w", err)
		}
		if cfg.Storage.DB.AutoCreateTable {
			if err := storage.EnsureTable(ctx, cfg.Storage.Kind, repo, geocode.TableDef(g.CacheTable)); err != nil {
				repo.Close()
				return nil, nil, fmt.Errorf("coordinate store: %w", err)
			}
		}
		return geocode.RepoStore{Repo: repo}, repo.Close, nil
	case g.CacheFile != "":
		return geocode.FileStore{Path: g.CacheFile}, func() {}, nil
	}
	return nil, func() {}, nil
}

// ExportRepository opens the chart rows table of cfg.Storage, creating it
// when AutoCreateTable is set.
func ExportRepository(ctx context.Context, cfg config.Dashboard, log *slog.Logger) (storage.Repository, error) {
	s := cfg.Storage
	if s.Kind == "" {
		return nil, fmt.Errorf("export: no storage configured")
	}
	repo, err := storage.New(ctx, storage.Config{Kind: s.Kind, DSN: s.DB.DSN, Table: s.DB.Table})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if s.DB.AutoCreateTable {
		if err := storage.EnsureTable(ctx, s.Kind, repo, ChartRowsTable(s.DB.Table)); err != nil {
			repo.Close()
			return nil, fmt.Errorf("export: %w", err)
		}
		if log != nil {
			log.Debug("report: export table ready", "kind", s.Kind, "table", s.DB.Table)
		}
	}
	return repo, nil
}
