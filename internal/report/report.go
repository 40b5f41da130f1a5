// Package report assembles the pipeline from a dashboard config: it turns
// the raw input tables into one immutable joined Dataset, then answers
// filter selections with KPI values and chart series.
//
//	raw tables → normalize → join → coerce → derive → enrich → Dataset
//	Dataset.Run(selection) → filter → aggregate → Result
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"salesreport/internal/config"
	"salesreport/internal/datasource/file"
	"salesreport/internal/filter"
	"salesreport/internal/geocode"
	"salesreport/internal/metrics"
	"salesreport/internal/schema"
	"salesreport/internal/table"
	"salesreport/internal/transformer"
	"salesreport/internal/transformer/builtin"
)

// Inputs are the raw tables keyed by source name.
type Inputs map[string]*table.Table

// Options carries the collaborators of Prepare. All fields are optional.
type Options struct {
	Logger *slog.Logger
	Clock  clockwork.Clock

	// Geocoder resolves places missing from the coordinate store. When nil,
	// only stored coordinates are used.
	Geocoder geocode.Geocoder
	// Store persists coordinates between runs.
	Store geocode.Store
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Dataset is the joined, typed fact table plus its filter options. It is
// never modified after Prepare, so concurrent Run calls need no locking.
type Dataset struct {
	cfg     config.Dashboard
	joined  *table.Table
	dims    []filter.Dimension
	options []filter.Option
	opts    Options
}

// LoadInputs reads every declared source concurrently. A nil load uses
// file.Load.
func LoadInputs(ctx context.Context, cfg config.Dashboard, load file.LoadFunc, log *slog.Logger) (Inputs, error) {
	specs := make([]file.Spec, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		specs = append(specs, file.Spec{
			Name: s.Name,
			Path: s.Path,
			Options: file.Options{
				Comma:          s.Options.Rune("comma", 0),
				Sheet:          s.Options.String("sheet", ""),
				NoHeader:       s.Options.Bool("no_header", false),
				TrimSpace:      s.Options.Bool("trim_space", false),
				ExpectedFields: s.Options.Int("expected_fields", 0),
				Logger:         log,
			},
		})
	}
	m, err := file.LoadAll(ctx, specs, load)
	if err != nil {
		return nil, err
	}
	return Inputs(m), nil
}

// Prepare runs every stage up to and including enrichment. Any schema, join
// key or configuration error stops it before a Dataset exists.
func Prepare(ctx context.Context, cfg config.Dashboard, raw Inputs, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()
	p := &preparer{cfg: cfg, opts: opts, log: opts.Logger.With("job", cfg.Job)}

	fact, ok := cfg.Fact()
	if !ok {
		return nil, fmt.Errorf("report: dashboard %q declares no fact source", cfg.Job)
	}

	var tables map[string]*table.Table
	if err := p.step("normalize", func() (err error) {
		tables, err = p.normalize(raw)
		return err
	}); err != nil {
		return nil, err
	}

	var joined *table.Table
	if err := p.step("join", func() (err error) {
		joined, err = p.join(tables[fact.Name], tables)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.step("coerce", func() (err error) {
		joined, err = p.coerce(joined)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.step("derive", func() (err error) {
		joined, err = p.derive(joined)
		return err
	}); err != nil {
		return nil, err
	}

	if cfg.Map != nil && cfg.Geocode.Enabled {
		if err := p.step("enrich", func() (err error) {
			joined, err = p.enrich(ctx, joined)
			return err
		}); err != nil {
			return nil, err
		}
	}

	dims := dimensions(cfg.Filters)
	options, err := filter.Options(joined, dims)
	if err != nil {
		return nil, err
	}
	p.log.Info("report: dataset ready", "rows", joined.Len(), "columns", len(joined.Columns()))

	return &Dataset{cfg: cfg, joined: joined, dims: dims, options: options, opts: opts}, nil
}

type preparer struct {
	cfg  config.Dashboard
	opts Options
	log  *slog.Logger
}

// step times fn and records it as a pipeline step.
func (p *preparer) step(name string, fn func() error) error {
	start := p.opts.Clock.Now()
	err := fn()
	d := p.opts.Clock.Since(start)
	metrics.RecordStep(p.cfg.Job, name, err, d)
	if err != nil {
		p.log.Error("report: step failed", "step", name, "err", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.log.Debug("report: step done", "step", name, "took", d.Truncate(time.Microsecond))
	return nil
}

func (p *preparer) normalize(raw Inputs) (map[string]*table.Table, error) {
	out := make(map[string]*table.Table, len(p.cfg.Sources))
	for _, s := range p.cfg.Sources {
		t, ok := raw[s.Name]
		if !ok || t == nil {
			return nil, fmt.Errorf("source %q was not loaded", s.Name)
		}
		contract := schema.Contract{Table: s.Name, Required: s.Required}
		n, err := transformer.Chain{
			transformer.Named{Name: "contract", Transformer: transformer.Func(func(t *table.Table) (*table.Table, error) {
				return schema.NormalizeAndCheck(t, contract)
			})},
			builtin.TrimValues{},
		}.Apply(t)
		if err != nil {
			return nil, err
		}
		metrics.RecordRows(p.cfg.Job, "loaded", int64(n.Len()))
		out[s.Name] = n
	}
	return out, nil
}

func (p *preparer) join(fact *table.Table, tables map[string]*table.Table) (*table.Table, error) {
	specs := make([]builtin.JoinSpec, 0, len(p.cfg.Joins))
	for _, j := range p.cfg.Joins {
		dim, ok := tables[j.Dimension]
		if !ok {
			return nil, fmt.Errorf("join references unknown source %q", j.Dimension)
		}
		specs = append(specs, builtin.JoinSpec{
			Dimension: dim,
			FactKeys:  canonical(j.FactKeys),
			DimKeys:   canonical(j.DimKeys),
			Columns:   canonical(j.Columns),
			Prefix:    j.Prefix,
		})
	}
	out, err := builtin.Join(fact, specs...)
	if err != nil {
		return nil, err
	}
	metrics.RecordRows(p.cfg.Job, "joined", int64(out.Len()))
	return out, nil
}

func (p *preparer) coerce(t *table.Table) (*table.Table, error) {
	c := builtin.Coerce{Columns: map[string][]builtin.Rule{}}
	for _, n := range p.cfg.Numeric {
		rules, err := builtin.RulesFromConfig(n.Rules)
		if err != nil {
			return nil, fmt.Errorf("numeric %q: %w", n.Column, err)
		}
		col := schema.NormalizeName(n.Column)
		c.Columns[col] = rules
		c.Order = append(c.Order, col)
	}
	c.OnStats = func(st builtin.CoerceStats) {
		metrics.RecordCells(p.cfg.Job, st.Column, "coerced", int64(st.Coerced))
		metrics.RecordCells(p.cfg.Job, st.Column, "missing", int64(st.Missing))
		p.log.Debug("report: coerced column", "column", st.Column,
			"total", st.Total, "coerced", st.Coerced, "missing", st.Missing)
	}
	return c.Apply(t)
}

func (p *preparer) derive(t *table.Table) (*table.Table, error) {
	var chain transformer.Chain
	for _, d := range p.cfg.Derived {
		op, err := builtin.ParseOp(d.Op)
		if err != nil {
			return nil, fmt.Errorf("derived %q: %w", d.Name, err)
		}
		chain = append(chain, transformer.Named{
			Name: d.Name,
			Transformer: builtin.Derived{
				Name:  schema.NormalizeName(d.Name),
				Op:    op,
				Left:  schema.NormalizeName(d.Left),
				Right: schema.NormalizeName(d.Right),
			},
		})
	}
	return chain.Apply(t)
}

func (p *preparer) enrich(ctx context.Context, t *table.Table) (*table.Table, error) {
	g := p.cfg.Geocode
	var seed map[geocode.Key]geocode.Coord
	if p.opts.Store != nil {
		var err error
		if seed, err = p.opts.Store.Load(ctx); err != nil {
			// A broken cache costs coordinates, not the report.
			p.log.Warn("report: coordinate cache unreadable", "err", err)
			seed = nil
		}
	}

	// Only a remote geocoder is throttled; the stored seed answers locally.
	var lookup geocode.Geocoder = geocode.Static(seed)
	if p.opts.Geocoder != nil {
		if g.MaxRetries < 0 {
			g.MaxRetries = 0
		}
		lookup = geocode.Retrying{
			Inner:      geocode.NewRateLimited(p.opts.Geocoder, g.RatePerSecond, g.Burst),
			MaxRetries: uint64(g.MaxRetries),
		}
	}
	cached := geocode.NewCached(lookup, seed)

	out, st, err := geocode.Enrich(ctx, t, cached, geocode.EnrichOptions{
		CityColumn:   schema.NormalizeName(p.cfg.Map.City),
		RegionColumn: schema.NormalizeName(p.cfg.Map.Region),
		Timeout:      time.Duration(g.TimeoutMS) * time.Millisecond,
		Job:          p.cfg.Job,
		Logger:       p.log,
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("report: geocoded", "places", st.Places, "hits", st.Hits, "misses", st.Misses, "errors", st.Errors)

	if p.opts.Store != nil {
		if err := p.opts.Store.Save(ctx, cached.Added()); err != nil {
			p.log.Warn("report: coordinate cache not saved", "err", err)
		}
	}
	return out, nil
}

func canonical(cols []string) []string {
	if cols == nil {
		return nil
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = schema.NormalizeName(c)
	}
	return out
}

func dimensions(fs []config.Filter) []filter.Dimension {
	out := make([]filter.Dimension, len(fs))
	for i, f := range fs {
		out[i] = filter.Dimension{
			Name:    f.Name,
			Column:  schema.NormalizeName(f.Column),
			Label:   f.Label,
			Allowed: f.Allowed,
		}
	}
	return out
}

// Table returns the prepared joined table.
func (d *Dataset) Table() *table.Table { return d.joined }

// Options returns the selectable values of every filter dimension.
func (d *Dataset) Options() []filter.Option { return d.options }

// DefaultSelection selects every option.
func (d *Dataset) DefaultSelection() filter.Selection { return filter.DefaultSelection(d.options) }

// Dashboard returns the config the dataset was prepared from.
func (d *Dataset) Dashboard() config.Dashboard { return d.cfg }
