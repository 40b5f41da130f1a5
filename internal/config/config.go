// Package config defines the JSON-serializable description of a sales
// dashboard: which tables to load, how to join and clean them, which filters
// to offer and which KPIs and charts to compute. A dashboard file is decoded
// once at startup and passed through the program without further glue.
//
// Example (trimmed):
//
//	{
//	  "job": "sales",
//	  "sources": [
//	    { "name": "fact", "path": "FactJuneSale.xlsx", "role": "fact", "required": ["City Key"] },
//	    { "name": "dim_city", "path": "DimCity.xlsx", "role": "dimension" }
//	  ],
//	  "joins":   [ { "dimension": "dim_city", "fact_keys": ["city_key"], "dim_keys": ["city_key"] } ],
//	  "numeric": [ { "column": "quantity" } ],
//	  "filters": [ { "name": "city", "column": "city" } ],
//	  "kpis":    [ { "name": "avg_quantity", "op": "mean", "column": "quantity" } ],
//	  "storage": { "kind": "sqlite", "db": { "dsn": "file:sales.db", "table": "chart_rows" } }
//	}
package config

import "encoding/json"

// Source roles.
const (
	RoleFact      = "fact"
	RoleDimension = "dimension"
)

// Dashboard is the top-level object decoded from a dashboard file (e.g.
// configs/sales.json).
type Dashboard struct {
	// Job labels metrics and exported runs.
	Job   string `json:"job"`
	Title string `json:"title"`

	// Sources lists the input tables. Exactly one must have role "fact".
	Sources []Source `json:"sources"`

	// Joins are applied to the fact table in declared order.
	Joins []Join `json:"joins"`

	// Numeric lists the joined-table columns coerced to numbers, each with
	// its ordered clean-up rules.
	Numeric []Numeric `json:"numeric"`

	// Derived columns are computed row-wise after coercion.
	Derived []Derived `json:"derived"`

	Filters []Filter    `json:"filters"`
	KPIs    []Aggregate `json:"kpis"`
	Charts  []Chart     `json:"charts"`
	Map     *Map        `json:"map,omitempty"`

	Geocode Geocode `json:"geocode"`
	Storage Storage `json:"storage"`
	Metrics Metrics `json:"metrics"`

	// BaseDir is the directory relative source paths were resolved against.
	BaseDir string `json:"-"`
}

// Source names one input table. Required lists the columns (raw or
// canonical spelling) that must exist after name normalization.
type Source struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Role     string   `json:"role"`
	Required []string `json:"required"`

	// Options are handed to the format parser, e.g. "comma" for CSV or
	// "sheet" for spreadsheets.
	Options Options `json:"options"`
}

// Join declares one left join of a dimension source onto the fact table.
type Join struct {
	Dimension string   `json:"dimension"`
	FactKeys  []string `json:"fact_keys"`
	DimKeys   []string `json:"dim_keys"`
	Columns   []string `json:"columns"`
	Prefix    string   `json:"prefix"`
}

// Rule is one numeric clean-up step. Kind selects the rule; Options carries
// its arguments.
type Rule struct {
	Kind    string  `json:"kind"`
	Options Options `json:"options"`
}

// Numeric marks a column for numeric coercion.
type Numeric struct {
	Column string `json:"column"`
	Rules  []Rule `json:"rules"`
}

// Derived declares Name = Left Op Right, Op one of mul, add, sub, div.
type Derived struct {
	Name  string `json:"name"`
	Op    string `json:"op"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Filter binds a filterable dimension to a joined-table column. Allowed,
// when set, restricts the values offered as options.
type Filter struct {
	Name    string   `json:"name"`
	Column  string   `json:"column"`
	Label   string   `json:"label"`
	Allowed []string `json:"allowed"`
}

// Aggregate is a scalar KPI: Op over Column.
type Aggregate struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Op     string `json:"op"`
	Column string `json:"column"`
}

// Chart is a grouped aggregate. Kind is a presentation hint (bar, pie,
// scatter, line) passed through untouched.
type Chart struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Kind    string   `json:"kind"`
	GroupBy []string `json:"group_by"`
	Op      string   `json:"op"`
	Column  string   `json:"column"`
}

// Map aggregates Column per city for rows that carry coordinates.
type Map struct {
	Name   string `json:"name"`
	City   string `json:"city"`
	Region string `json:"region"`
	Op     string `json:"op"`
	Column string `json:"column"`
}

// Geocode configures coordinate enrichment. Kind "static" resolves from the
// coordinate cache only; geocoding is skipped when Enabled is false.
type Geocode struct {
	Enabled bool   `json:"enabled"`
	Kind    string `json:"kind"`

	// CacheFile is a CSV coordinate store (city, state_province, latitude,
	// longitude). CacheTable, when set, stores coordinates through Storage
	// instead.
	CacheFile  string `json:"cache_file"`
	CacheTable string `json:"cache_table"`

	// RatePerSecond and Burst throttle lookups; MaxRetries bounds retries of
	// transient failures.
	RatePerSecond float64 `json:"rate_per_second"`
	Burst         int     `json:"burst"`
	MaxRetries    int     `json:"max_retries"`
	TimeoutMS     int     `json:"timeout_ms"`
}

// Storage selects the sink used by export and the coordinate table.
type Storage struct {
	// Kind selects the backend: sqlite, postgres, mssql or mysql. Empty disables
	// persistence.
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the DB sink.
type DBConfig struct {
	// DSN is the driver connection string (e.g. postgresql://..., file:x.db).
	DSN string `json:"dsn"`

	// Table receives exported chart rows.
	Table string `json:"table"`

	// AutoCreateTable creates Table (and the coordinate table) when absent.
	AutoCreateTable bool `json:"auto_create_table"`

	BatchSize int `json:"batch_size"`
}

// Metrics selects the metrics backend: "", "none", "prometheus" or
// "datadog".
type Metrics struct {
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	DogStatsdAddr  string `json:"dogstatsd_addr"`
}

// Fact returns the fact source.
func (d Dashboard) Fact() (Source, bool) {
	for _, s := range d.Sources {
		if s.Role == RoleFact {
			return s, true
		}
	}
	return Source{}, false
}

// Options is a small helper to fetch typed values from free-form JSON maps.
// It performs only minimal type coercion and returns the provided default
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json decodes numbers as
// float64, so both float64 and int are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. Used for single-character settings such as a CSV
// delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. Returns nil when the key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null "options" object to a non-nil,
// empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
