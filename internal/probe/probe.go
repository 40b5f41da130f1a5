// Package probe profiles an input table before a dashboard is written for it:
// raw and canonical column names, an inferred type per column, missing
// counts, and a draft config (source entry plus numeric rules) to start from.
package probe

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"salesreport/internal/config"
	"salesreport/internal/datasource/file"
	"salesreport/internal/schema"
	"salesreport/internal/table"
	"salesreport/internal/transformer/builtin"
)

// Inferred column types.
const (
	TypeEmpty   = "empty"
	TypeInteger = "integer"
	TypeReal    = "real"
	TypeDate    = "date"
	TypeText    = "text"
)

// placeholders are cell values that read as "no data" in the sample exports.
var placeholders = map[string]bool{"-": true, "n/a": true, "N/A": true}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02.01.2006",
	"1/2/2006",
	"01/02/2006",
}

// Column profiles one column.
type Column struct {
	Raw       string `json:"raw"`
	Canonical string `json:"canonical"`
	Type      string `json:"type"`
	Missing   int    `json:"missing"`
	Distinct  int    `json:"distinct"`

	// Localized is set when numbers only parse after decimal normalization
	// ("1,234.56").
	Localized bool `json:"localized,omitempty"`
	// Placeholder is a value that stands for missing, e.g. "-".
	Placeholder string `json:"placeholder,omitempty"`
}

// Profile is the result for one table.
type Profile struct {
	Name    string   `json:"name"`
	Path    string   `json:"path,omitempty"`
	Rows    int      `json:"rows"`
	Columns []Column `json:"columns"`
}

// Options control Probe.
type Options struct {
	Name  string
	Load  file.Options
	Limit int // rows to profile; 0 means all
}

// Probe loads path and profiles it.
func Probe(ctx context.Context, path string, opt Options) (Profile, error) {
	name := opt.Name
	if name == "" {
		name = "source"
	}
	t, err := file.Load(ctx, name, path, opt.Load)
	if err != nil {
		return Profile{}, err
	}
	p := ProfileTable(t, opt.Limit)
	p.Path = path
	return p, nil
}

// ProfileTable profiles the first limit rows of t (all when limit <= 0).
func ProfileTable(t *table.Table, limit int) Profile {
	n := t.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	p := Profile{Name: t.Name(), Rows: n}
	for j, c := range t.Columns() {
		vals := make([]string, 0, n)
		col := Column{Raw: c, Canonical: schema.NormalizeName(c)}
		seen := map[string]struct{}{}
		for i := 0; i < n; i++ {
			v := t.At(i, j)
			s := strings.TrimSpace(v.String())
			if v.IsMissing() || s == "" {
				col.Missing++
				continue
			}
			seen[s] = struct{}{}
			vals = append(vals, s)
		}
		col.Distinct = len(seen)
		col.Type, col.Localized, col.Placeholder = inferType(vals)
		p.Columns = append(p.Columns, col)
	}
	return p
}

// inferType requires every non-empty value to satisfy the narrower type. A
// single placeholder value is tolerated in numeric columns.
func inferType(vals []string) (typ string, localized bool, placeholder string) {
	if len(vals) == 0 {
		return TypeEmpty, false, ""
	}
	var rest []string
	for _, v := range vals {
		if placeholders[v] && (placeholder == "" || placeholder == v) {
			placeholder = v
			continue
		}
		rest = append(rest, v)
	}
	if len(rest) == 0 {
		return TypeText, false, ""
	}

	switch {
	case allMatch(rest, isInt):
		return TypeInteger, false, placeholder
	case allMatch(rest, isFloat):
		return TypeReal, false, placeholder
	case allMatch(rest, isLocalizedFloat):
		return TypeReal, true, placeholder
	case placeholder == "" && allMatch(rest, isDate):
		return TypeDate, false, ""
	}
	return TypeText, false, ""
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isInt requires a signed base-10 integer that fits in int64.
func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloat accepts decimal or scientific notation.
func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isLocalizedFloat(s string) bool {
	c, ok := builtin.NormalizeDecimal{}.Clean(s)
	return ok && isFloat(c)
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// Draft suggests a dashboard source entry and numeric coercion rules for p.
func Draft(p Profile, role string) (config.Source, []config.Numeric) {
	src := config.Source{Name: schema.NormalizeName(p.Name), Path: p.Path, Role: role, Options: config.Options{}}
	var nums []config.Numeric
	for _, c := range p.Columns {
		if c.Missing == 0 {
			src.Required = append(src.Required, c.Raw)
		}
		if c.Type != TypeInteger && c.Type != TypeReal {
			continue
		}
		n := config.Numeric{Column: c.Canonical, Rules: []config.Rule{{Kind: "trim"}}}
		if c.Localized {
			n.Rules = append(n.Rules, config.Rule{Kind: "decimal"})
		}
		if c.Placeholder != "" {
			n.Rules = append(n.Rules, config.Rule{Kind: "sentinel", Options: config.Options{"value": c.Placeholder}})
		}
		nums = append(nums, n)
	}
	return src, nums
}

// CSV renders p as raw,canonical,type,missing,distinct lines with a header.
func CSV(p Profile) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"raw", "canonical", "type", "missing", "distinct"})
	for _, c := range p.Columns {
		_ = w.Write([]string{c.Raw, c.Canonical, c.Type, strconv.Itoa(c.Missing), strconv.Itoa(c.Distinct)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("probe: write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// JSON renders the profile together with its draft config.
func JSON(p Profile, role string) ([]byte, error) {
	src, nums := Draft(p, role)
	out := struct {
		Profile Profile          `json:"profile"`
		Source  config.Source    `json:"source"`
		Numeric []config.Numeric `json:"numeric"`
	}{p, src, nums}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("probe: marshal: %w", err)
	}
	return append(b, '\n'), nil
}
