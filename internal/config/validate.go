package config

// This file adds a lightweight linter for Dashboard values. It performs
// static checks over a decoded Dashboard and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "joins[1].dim_keys"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	knownRules     = set("trim", "strip", "replace", "decimal", "sentinel")
	knownOps       = set("mean", "sum", "count", "min", "max")
	knownDerived   = set("mul", "add", "sub", "div", "*", "+", "-", "/")
	knownStorage   = set("sqlite", "postgres", "mssql", "mysql")
	knownMetrics   = set("", "none", "prometheus", "datadog")
	knownGeocoders = set("", "static")
)

func set(vals ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

func known(m map[string]struct{}, v string) bool {
	_, ok := m[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// ValidateDashboard performs static validation of a Dashboard. It does not
// mutate d. Callers decide whether warnings are fatal.
//
// Example:
//
//	d, err := config.Load("configs/sales.json")
//	if err != nil { ... }
//	for _, iss := range config.ValidateDashboard(d) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidateDashboard(d Dashboard) []Issue {
	var issues []Issue

	if strings.TrimSpace(d.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and exported runs",
		})
	}
	dims := map[string]struct{}{}
	issues = append(issues, validateSources(d.Sources, dims)...)
	issues = append(issues, validateJoins(d.Joins, dims)...)
	issues = append(issues, validateNumeric(d.Numeric)...)
	issues = append(issues, validateDerived(d.Derived)...)
	issues = append(issues, validateFilters(d.Filters)...)
	issues = append(issues, validateAggregates(d.KPIs, d.Charts)...)
	issues = append(issues, validateMap(d.Map, d.Geocode)...)
	issues = append(issues, validateGeocode(d.Geocode, d.Storage)...)
	issues = append(issues, validateStorage(d.Storage)...)
	issues = append(issues, validateMetrics(d.Metrics)...)

	return issues
}

// validateSources fills dims with the dimension source names.
func validateSources(srcs []Source, dims map[string]struct{}) []Issue {
	var issues []Issue
	if len(srcs) == 0 {
		return append(issues, Issue{Severity: SeverityError, Path: "sources", Message: "at least one source is required"})
	}

	facts := 0
	names := map[string]int{}
	for i, s := range srcs {
		p := fmt.Sprintf("sources[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".name", Message: "source name must not be empty"})
		} else if prev, dup := names[s.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     p + ".name",
				Message:  fmt.Sprintf("duplicate source name %q (also sources[%d])", s.Name, prev),
			})
		} else {
			names[s.Name] = i
		}
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".path", Message: "source path must not be empty"})
		}
		switch s.Role {
		case RoleFact:
			facts++
		case RoleDimension:
			dims[s.Name] = struct{}{}
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     p + ".role",
				Message:  fmt.Sprintf("role %q must be %q or %q", s.Role, RoleFact, RoleDimension),
			})
		}
	}
	if facts != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources",
			Message:  fmt.Sprintf("exactly one fact source is required, found %d", facts),
		})
	}
	return issues
}

func validateJoins(joins []Join, dims map[string]struct{}) []Issue {
	var issues []Issue
	for i, j := range joins {
		p := fmt.Sprintf("joins[%d]", i)
		if _, ok := dims[j.Dimension]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     p + ".dimension",
				Message:  fmt.Sprintf("%q is not a dimension source", j.Dimension),
			})
		}
		if len(j.FactKeys) == 0 {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".fact_keys", Message: "at least one key column is required"})
		}
		if len(j.FactKeys) != len(j.DimKeys) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     p + ".dim_keys",
				Message:  fmt.Sprintf("%d dimension keys for %d fact keys", len(j.DimKeys), len(j.FactKeys)),
			})
		}
	}
	return issues
}

func validateNumeric(ns []Numeric) []Issue {
	var issues []Issue
	for i, n := range ns {
		p := fmt.Sprintf("numeric[%d]", i)
		if strings.TrimSpace(n.Column) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".column", Message: "column must not be empty"})
		}
		for k, r := range n.Rules {
			if !known(knownRules, r.Kind) {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("%s.rules[%d].kind", p, k),
					Message:  fmt.Sprintf("unknown rule kind %q", r.Kind),
				})
			}
		}
	}
	return issues
}

func validateDerived(ds []Derived) []Issue {
	var issues []Issue
	for i, d := range ds {
		p := fmt.Sprintf("derived[%d]", i)
		if strings.TrimSpace(d.Name) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".name", Message: "name must not be empty"})
		}
		if !known(knownDerived, d.Op) {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".op", Message: fmt.Sprintf("unknown operator %q", d.Op)})
		}
		if d.Left == "" || d.Right == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p, Message: "left and right operands are required"})
		}
	}
	return issues
}

func validateFilters(fs []Filter) []Issue {
	var issues []Issue
	names := map[string]struct{}{}
	for i, f := range fs {
		p := fmt.Sprintf("filters[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".name", Message: "name must not be empty"})
		} else if _, dup := names[f.Name]; dup {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".name", Message: fmt.Sprintf("duplicate filter %q", f.Name)})
		}
		names[f.Name] = struct{}{}
		if strings.TrimSpace(f.Column) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".column", Message: "column must not be empty"})
		}
	}
	return issues
}

func validateAggregates(kpis []Aggregate, charts []Chart) []Issue {
	var issues []Issue
	if len(kpis) == 0 && len(charts) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "kpis",
			Message:  "no kpis or charts configured; a run will only filter rows",
		})
	}
	for i, k := range kpis {
		p := fmt.Sprintf("kpis[%d]", i)
		issues = append(issues, validateOp(p, k.Name, k.Op, k.Column)...)
	}
	for i, c := range charts {
		p := fmt.Sprintf("charts[%d]", i)
		issues = append(issues, validateOp(p, c.Name, c.Op, c.Column)...)
		if len(c.GroupBy) == 0 {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".group_by", Message: "at least one group-by column is required"})
		}
	}
	return issues
}

func validateOp(p, name, op, column string) []Issue {
	var issues []Issue
	if strings.TrimSpace(name) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: p + ".name", Message: "name must not be empty"})
	}
	if !known(knownOps, op) {
		issues = append(issues, Issue{Severity: SeverityError, Path: p + ".op", Message: fmt.Sprintf("unknown operation %q", op)})
	}
	if strings.TrimSpace(column) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: p + ".column", Message: "column must not be empty"})
	}
	return issues
}

func validateMap(m *Map, g Geocode) []Issue {
	if m == nil {
		return nil
	}
	issues := validateOp("map", m.Name, m.Op, m.Column)
	if strings.TrimSpace(m.City) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "map.city", Message: "city column must not be empty"})
	}
	if strings.TrimSpace(m.Region) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "map.region", Message: "region column must not be empty"})
	}
	if !g.Enabled {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "map",
			Message:  "map is configured but geocode is disabled; the map aggregate will be empty",
		})
	}
	return issues
}

func validateGeocode(g Geocode, s Storage) []Issue {
	var issues []Issue
	if !g.Enabled {
		return nil
	}
	if !known(knownGeocoders, g.Kind) {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: "geocode.kind", Message: fmt.Sprintf("unknown geocoder %q", g.Kind)})
	}
	if g.CacheFile == "" && g.CacheTable == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "geocode",
			Message:  "no cache_file or cache_table; every city will resolve as not found",
		})
	}
	if g.CacheTable != "" && s.Kind == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "geocode.cache_table", Message: "cache_table requires a storage backend"})
	}
	if g.RatePerSecond < 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "geocode.rate_per_second", Message: "must not be negative"})
	}
	if g.MaxRetries < 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "geocode.max_retries", Message: "must not be negative"})
	}
	return issues
}

// validateStorage validates storage configuration and DB settings. An empty
// kind disables persistence.
func validateStorage(s Storage) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Kind) == "" {
		return nil
	}
	if !known(knownStorage, s.Kind) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.dsn", Message: "storage.db.dsn must not be empty"})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.table", Message: "storage.db.table must not be empty"})
	}
	if s.DB.BatchSize < 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.batch_size", Message: "batch_size must not be negative"})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	if !known(knownMetrics, m.Backend) {
		return append(issues, Issue{Severity: SeverityError, Path: "metrics.backend", Message: fmt.Sprintf("unknown metrics backend %q", m.Backend)})
	}
	if strings.EqualFold(m.Backend, "prometheus") && m.PushgatewayURL == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "metrics.pushgateway_url", Message: "prometheus backend requires pushgateway_url"})
	}
	return issues
}
