package report

import (
	"fmt"

	"salesreport/internal/aggregate"
	"salesreport/internal/filter"
	"salesreport/internal/geocode"
	"salesreport/internal/metrics"
	"salesreport/internal/schema"
	"salesreport/internal/table"
)

// KPI is one computed scalar aggregate.
type KPI struct {
	Name   string           `json:"name"`
	Label  string           `json:"label,omitempty"`
	Op     aggregate.Op     `json:"op"`
	Column string           `json:"column"`
	Value  aggregate.Result `json:"value"`
}

// Chart is one computed grouped aggregate.
type Chart struct {
	Name    string               `json:"name"`
	Title   string               `json:"title,omitempty"`
	Kind    string               `json:"kind,omitempty"`
	GroupBy []string             `json:"group_by"`
	Op      aggregate.Op         `json:"op"`
	Column  string               `json:"column"`
	Series  []aggregate.GroupRow `json:"series"`
}

// MapPoint is one city of the map series.
type MapPoint struct {
	City   string           `json:"city"`
	Region string           `json:"region"`
	Lat    float64          `json:"lat"`
	Lon    float64          `json:"lon"`
	Value  aggregate.Result `json:"value"`
}

// Result is everything a dashboard displays for one selection.
type Result struct {
	Job       string           `json:"job"`
	Title     string           `json:"title,omitempty"`
	Selection filter.Selection `json:"selection"`
	Rows      int              `json:"rows"`
	Empty     bool             `json:"empty"`
	KPIs      []KPI            `json:"kpis"`
	Charts    []Chart          `json:"charts"`
	Map       []MapPoint       `json:"map,omitempty"`
}

// Run filters the dataset by sel and computes every KPI and chart. A nil
// selection keeps every row. An empty result is reported through
// Result.Empty, with NoValue aggregates, not as an error.
func (d *Dataset) Run(sel filter.Selection) (*Result, error) {
	start := d.opts.Clock.Now()
	res, err := d.run(sel)
	metrics.RecordStep(d.cfg.Job, "report", err, d.opts.Clock.Since(start))
	return res, err
}

func (d *Dataset) run(sel filter.Selection) (*Result, error) {
	rows, err := filter.Apply(d.joined, d.dims, sel)
	if err != nil {
		return nil, err
	}
	metrics.RecordRows(d.cfg.Job, "filtered", int64(rows.Len()))

	res := &Result{
		Job:       d.cfg.Job,
		Title:     d.cfg.Title,
		Selection: sel,
		Rows:      rows.Len(),
		Empty:     rows.Len() == 0,
		KPIs:      make([]KPI, 0, len(d.cfg.KPIs)),
		Charts:    make([]Chart, 0, len(d.cfg.Charts)),
	}

	for _, k := range d.cfg.KPIs {
		op, err := aggregate.ParseOp(k.Op)
		if err != nil {
			return nil, fmt.Errorf("kpi %q: %w", k.Name, err)
		}
		col := schema.NormalizeName(k.Column)
		v, err := aggregate.Scalar(rows, aggregate.ScalarSpec{Op: op, Column: col})
		if err != nil {
			return nil, fmt.Errorf("kpi %q: %w", k.Name, err)
		}
		if res.Empty {
			v = aggregate.NoValue
		}
		res.KPIs = append(res.KPIs, KPI{Name: k.Name, Label: k.Label, Op: op, Column: col, Value: v})
	}

	for _, c := range d.cfg.Charts {
		op, err := aggregate.ParseOp(c.Op)
		if err != nil {
			return nil, fmt.Errorf("chart %q: %w", c.Name, err)
		}
		spec := aggregate.GroupedSpec{GroupBy: canonical(c.GroupBy), Op: op, Column: schema.NormalizeName(c.Column)}
		series, err := aggregate.Grouped(rows, spec)
		if err != nil {
			return nil, fmt.Errorf("chart %q: %w", c.Name, err)
		}
		res.Charts = append(res.Charts, Chart{
			Name: c.Name, Title: c.Title, Kind: c.Kind,
			GroupBy: spec.GroupBy, Op: op, Column: spec.Column,
			Series: series,
		})
	}

	if d.cfg.Map != nil && d.joined.HasColumn(geocode.LatitudeColumn) {
		points, err := d.mapSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("map: %w", err)
		}
		res.Map = points
	}
	return res, nil
}

// mapSeries aggregates the map column per (city, region) over rows that
// carry coordinates.
func (d *Dataset) mapSeries(rows *table.Table) ([]MapPoint, error) {
	m := d.cfg.Map
	op, err := aggregate.ParseOp(m.Op)
	if err != nil {
		return nil, err
	}
	lat, _ := rows.ColumnIndex(geocode.LatitudeColumn)
	lon, _ := rows.ColumnIndex(geocode.LongitudeColumn)

	var located []int
	for i := 0; i < rows.Len(); i++ {
		if rows.At(i, lat).IsNumber() && rows.At(i, lon).IsNumber() {
			located = append(located, i)
		}
	}
	sub := rows.Select(located)

	city, region := schema.NormalizeName(m.City), schema.NormalizeName(m.Region)
	series, err := aggregate.Grouped(sub, aggregate.GroupedSpec{
		GroupBy: []string{city, region},
		Op:      op,
		Column:  schema.NormalizeName(m.Column),
	})
	if err != nil {
		return nil, err
	}

	// Every row of a (city, region) group shares one coordinate.
	coords := make(map[[2]string]geocode.Coord, len(series))
	ci, _ := sub.ColumnIndex(city)
	ri, _ := sub.ColumnIndex(region)
	for i := 0; i < sub.Len(); i++ {
		k := [2]string{sub.At(i, ci).String(), sub.At(i, ri).String()}
		if _, ok := coords[k]; ok {
			continue
		}
		la, _ := sub.At(i, lat).Float()
		lo, _ := sub.At(i, lon).Float()
		coords[k] = geocode.Coord{Lat: la, Lon: lo}
	}

	out := make([]MapPoint, len(series))
	for n, g := range series {
		c := coords[[2]string{g.Key[0], g.Key[1]}]
		out[n] = MapPoint{City: g.Key[0], Region: g.Key[1], Lat: c.Lat, Lon: c.Lon, Value: g.Result}
	}
	return out, nil
}
