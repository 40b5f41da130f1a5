package report

import (
	"context"
	"sync"

	"salesreport/internal/config"
	"salesreport/internal/datasource/file"
)

// Reloader keeps a Dataset in step with its source files. Sources are read
// through a file.Cache, which hands back the same table for unchanged bytes,
// so a reload prepares again only when some input table changed.
type Reloader struct {
	cfg        config.Dashboard
	cache      *file.Cache
	opts       Options
	closeStore func()

	mu   sync.Mutex
	last Inputs
	ds   *Dataset
}

// NewReloader opens the coordinate store the config names and prepares the
// first Dataset. A nil cache gets a fresh one.
func NewReloader(ctx context.Context, cfg config.Dashboard, cache *file.Cache, opts Options) (*Reloader, error) {
	opts = opts.withDefaults()
	if cache == nil {
		cache = file.NewCache()
	}
	closeStore := func() {}
	if opts.Store == nil && cfg.Geocode.Enabled {
		store, c, err := CoordinateStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts.Store, closeStore = store, c
	}
	r := &Reloader{cfg: cfg, cache: cache, opts: opts, closeStore: closeStore}
	if _, _, err := r.Reload(ctx); err != nil {
		closeStore()
		return nil, err
	}
	return r, nil
}

// Reload reads every source again and returns the Dataset to serve. changed
// is false when every input came back from the cache as before. On error the
// previous Dataset stays current.
func (r *Reloader) Reload(ctx context.Context) (ds *Dataset, changed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := LoadInputs(ctx, r.cfg, r.cache.Load, r.opts.Logger)
	if err != nil {
		return nil, false, err
	}
	hits, misses := r.cache.Stats()
	if r.ds != nil && sameInputs(r.last, raw) {
		r.opts.Logger.Debug("report: sources unchanged", "cache_hits", hits, "cache_misses", misses)
		return r.ds, false, nil
	}
	ds, err = Prepare(ctx, r.cfg, raw, r.opts)
	if err != nil {
		return nil, false, err
	}
	r.last, r.ds = raw, ds
	r.opts.Logger.Info("report: dataset prepared", "rows", ds.Table().Len(), "cache_hits", hits, "cache_misses", misses)
	return ds, true, nil
}

// Dataset returns the current Dataset.
func (r *Reloader) Dataset() *Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ds
}

// Close releases the coordinate store.
func (r *Reloader) Close() { r.closeStore() }

func sameInputs(a, b Inputs) bool {
	if len(a) != len(b) {
		return false
	}
	for name, t := range a {
		if b[name] != t {
			return false
		}
	}
	return true
}
