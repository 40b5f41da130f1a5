// Package filter applies a multi-dimensional selection to a joined table.
//
// A Selection maps dimension names to the set of values to keep. Dimensions
// are AND-combined and values within a dimension are OR-combined. A dimension
// absent from the Selection is unconstrained; a dimension present with an
// empty Set keeps nothing. An empty result is a valid state, not an error.
package filter

import (
	"errors"
	"fmt"

	"salesreport/internal/table"
)

// ErrUnknownDimension is returned when a Selection names a dimension that is
// not configured.
var ErrUnknownDimension = errors.New("unknown filter dimension")

// Dimension binds a filterable name (province, city, ...) to a column of the
// joined table. Allowed, when non-empty, restricts the offered options.
type Dimension struct {
	Name    string
	Column  string
	Label   string
	Allowed []string
}

// Set is the chosen values of one dimension. IncludeMissing keeps rows
// whose value is missing.
type Set struct {
	Values         []string `json:"values"`
	IncludeMissing bool     `json:"include_missing"`
}

// Empty reports whether the set selects nothing.
func (s Set) Empty() bool { return len(s.Values) == 0 && !s.IncludeMissing }

// Selection maps dimension name to its chosen Set.
type Selection map[string]Set

// Option lists what a dimension can be filtered on: the distinct observed
// values in first-seen order and whether missing values were observed.
type Option struct {
	Name       string   `json:"name"`
	Label      string   `json:"label,omitempty"`
	Column     string   `json:"column"`
	Values     []string `json:"values"`
	HasMissing bool     `json:"has_missing"`
}

// Options derives the option list of every dimension from t. Values outside
// a dimension's Allowed list are dropped, and an allow-listed dimension never
// offers missing.
func Options(t *table.Table, dims []Dimension) ([]Option, error) {
	out := make([]Option, 0, len(dims))
	for _, d := range dims {
		vals, missing, err := t.Distinct(d.Column)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", d.Name, err)
		}
		if len(d.Allowed) > 0 {
			allowed := make(map[string]struct{}, len(d.Allowed))
			for _, a := range d.Allowed {
				allowed[a] = struct{}{}
			}
			kept := vals[:0:0]
			for _, v := range vals {
				if _, ok := allowed[v]; ok {
					kept = append(kept, v)
				}
			}
			vals = kept
			missing = false
		}
		if vals == nil {
			vals = []string{}
		}
		out = append(out, Option{Name: d.Name, Label: d.Label, Column: d.Column, Values: vals, HasMissing: missing})
	}
	return out, nil
}

// DefaultSelection selects every offered value of every option, including
// missing where it was observed.
func DefaultSelection(opts []Option) Selection {
	sel := make(Selection, len(opts))
	for _, o := range opts {
		vals := make([]string, len(o.Values))
		copy(vals, o.Values)
		sel[o.Name] = Set{Values: vals, IncludeMissing: o.HasMissing}
	}
	return sel
}

// Apply returns the rows of t that satisfy sel. Row order is preserved and
// the input is not modified.
func Apply(t *table.Table, dims []Dimension, sel Selection) (*table.Table, error) {
	byName := make(map[string]Dimension, len(dims))
	for _, d := range dims {
		byName[d.Name] = d
	}

	type check struct {
		col     int
		values  map[string]struct{}
		missing bool
	}
	checks := make([]check, 0, len(sel))
	empty := false
	for name, set := range sel {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, name)
		}
		j, ok := t.ColumnIndex(d.Column)
		if !ok {
			return nil, &table.SchemaError{Table: t.Name(), Column: d.Column, Reason: "filter column not found"}
		}
		if set.Empty() {
			empty = true
			continue
		}
		c := check{col: j, values: make(map[string]struct{}, len(set.Values)), missing: set.IncludeMissing}
		for _, v := range set.Values {
			c.values[v] = struct{}{}
		}
		checks = append(checks, c)
	}
	if empty {
		return t.Select(nil), nil
	}

	keep := make([]int, 0, t.Len())
rows:
	for i := 0; i < t.Len(); i++ {
		for _, c := range checks {
			v := t.At(i, c.col)
			if v.IsMissing() {
				if !c.missing {
					continue rows
				}
				continue
			}
			if _, ok := c.values[v.String()]; !ok {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	return t.Select(keep), nil
}
