package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"salesreport/internal/config"
	"salesreport/internal/table"
)

// Rule is one text clean-up operation applied before a cell is parsed as a
// number. Rules run in order; a rule returning ok=false marks the cell
// missing and stops the chain.
type Rule interface {
	Clean(s string) (out string, ok bool)
}

// TrimSpace removes surrounding whitespace.
type TrimSpace struct{}

func (TrimSpace) Clean(s string) (string, bool) { return strings.TrimSpace(s), true }

// StripSymbol removes every occurrence of Symbol, e.g. a stray "?" left where
// a currency sign failed to decode.
type StripSymbol struct{ Symbol string }

func (r StripSymbol) Clean(s string) (string, bool) {
	if r.Symbol == "" {
		return s, true
	}
	return strings.ReplaceAll(s, r.Symbol, ""), true
}

// ReplaceSeparator replaces every From with To.
type ReplaceSeparator struct{ From, To string }

func (r ReplaceSeparator) Clean(s string) (string, bool) {
	if r.From == "" {
		return s, true
	}
	return strings.ReplaceAll(s, r.From, r.To), true
}

// NormalizeDecimal turns locale formatted numbers into the form ParseFloat
// accepts. When both ',' and '.' appear, the last one is the decimal mark and
// the other groups thousands ("1,234.56" and "1.234,56" → "1234.56"). Several
// commas with no period only group ("1,234,567"). A single comma is the
// decimal mark ("12,5" → "12.5") unless exactly three digits follow it:
// "1,234" reads either way, so it is missing unless Comma settles it.
type NormalizeDecimal struct {
	// Comma resolves a lone comma before three digits: "thousands" or
	// "decimal". Empty leaves such cells missing.
	Comma string
}

func (r NormalizeDecimal) Clean(s string) (string, bool) {
	comma, period := strings.LastIndexByte(s, ','), strings.LastIndexByte(s, '.')
	switch {
	case comma < 0:
		return s, true
	case period >= 0:
		mark, group := ".", ","
		if comma > period {
			mark, group = ",", "."
		}
		s = strings.ReplaceAll(s, group, "")
		return strings.Replace(s, mark, ".", 1), true
	case strings.Count(s, ",") > 1:
		return strings.ReplaceAll(s, ",", ""), true
	}
	if len(s)-comma-1 == 3 {
		switch r.Comma {
		case "thousands":
			return strings.Replace(s, ",", "", 1), true
		case "decimal":
		default:
			return "", false
		}
	}
	return strings.Replace(s, ",", ".", 1), true
}

// Sentinel maps an exact placeholder such as "-" or "N/A" to missing.
type Sentinel struct{ Value string }

func (r Sentinel) Clean(s string) (string, bool) {
	if s == r.Value {
		return "", false
	}
	return s, true
}

// RulesFromConfig builds rules from their declarative form:
//
//	{"kind": "trim"}
//	{"kind": "strip", "options": {"symbol": "?"}}
//	{"kind": "replace", "options": {"from": ",", "to": "."}}
//	{"kind": "decimal", "options": {"comma": "thousands"}}
//	{"kind": "sentinel", "options": {"value": "-"}}
func RulesFromConfig(specs []config.Rule) ([]Rule, error) {
	out := make([]Rule, 0, len(specs))
	for i, s := range specs {
		switch strings.ToLower(strings.TrimSpace(s.Kind)) {
		case "trim":
			out = append(out, TrimSpace{})
		case "strip":
			out = append(out, StripSymbol{Symbol: s.Options.String("symbol", "")})
		case "replace":
			out = append(out, ReplaceSeparator{From: s.Options.String("from", ""), To: s.Options.String("to", "")})
		case "decimal":
			comma := s.Options.String("comma", "")
			if comma != "" && comma != "thousands" && comma != "decimal" {
				return nil, fmt.Errorf("rule[%d]: decimal comma must be \"thousands\" or \"decimal\", got %q", i, comma)
			}
			out = append(out, NormalizeDecimal{Comma: comma})
		case "sentinel":
			out = append(out, Sentinel{Value: s.Options.String("value", "-")})
		default:
			return nil, fmt.Errorf("rule[%d]: unknown kind %q", i, s.Kind)
		}
	}
	return out, nil
}

// CoerceStats reports how a column fared. It is diagnostic only; missing
// cells never fail the pipeline.
type CoerceStats struct {
	Column  string
	Total   int
	Coerced int
	Missing int
}

// CoerceNumeric returns a copy of t whose column holds Number or Missing
// cells. Each text cell is run through rules, then parsed with
// strconv.ParseFloat; empty or unparseable text becomes Missing. Cells that
// are already numbers pass through.
func CoerceNumeric(t *table.Table, column string, rules []Rule) (*table.Table, CoerceStats, error) {
	stats := CoerceStats{Column: column}
	vals, err := t.Column(column)
	if err != nil {
		return nil, stats, err
	}
	for i, v := range vals {
		stats.Total++
		vals[i] = coerceValue(v, rules)
		if vals[i].IsMissing() {
			stats.Missing++
		} else {
			stats.Coerced++
		}
	}
	out, err := t.WithColumn(column, vals)
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

func coerceValue(v table.Value, rules []Rule) table.Value {
	switch v.Kind() {
	case table.KindNumber:
		return v
	case table.KindMissing:
		return v
	}
	s := v.String()
	for _, r := range rules {
		var ok bool
		if s, ok = r.Clean(s); !ok {
			return table.Missing()
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return table.Missing()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return table.Missing()
	}
	return table.Number(f)
}

// Coerce is the Transformer form of CoerceNumeric over several columns,
// applied in Order. OnStats, when set, receives each column's stats.
type Coerce struct {
	Columns map[string][]Rule
	Order   []string
	OnStats func(CoerceStats)
}

func (c Coerce) Apply(in *table.Table) (*table.Table, error) {
	out := in
	for _, col := range c.Order {
		next, stats, err := CoerceNumeric(out, col, c.Columns[col])
		if err != nil {
			return nil, err
		}
		if c.OnStats != nil {
			c.OnStats(stats)
		}
		out = next
	}
	return out, nil
}
