package file

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"salesreport/internal/table"
)

// Spec names one table to load.
type Spec struct {
	Name    string
	Path    string
	Options Options
}

// LoadFunc loads one table. Load and (*Cache).Load both satisfy it.
type LoadFunc func(ctx context.Context, name, path string, opt Options) (*table.Table, error)

// LoadAll loads every spec concurrently and returns the tables keyed by name.
// The first failure cancels the remaining loads and is returned. A nil load
// uses Load.
func LoadAll(ctx context.Context, specs []Spec, load LoadFunc) (map[string]*table.Table, error) {
	if load == nil {
		load = Load
	}
	out := make([]*table.Table, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range specs {
		i, s := i, s
		g.Go(func() error {
			t, err := load(gctx, s.Name, s.Path, s.Options)
			if err != nil {
				return fmt.Errorf("load %s: %w", s.Name, err)
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	m := make(map[string]*table.Table, len(specs))
	for i, s := range specs {
		m[s.Name] = out[i]
	}
	return m, nil
}
