package schema

import (
	"salesreport/internal/table"
)

// Contract declares the canonical columns a table must carry after
// normalization. It replaces per-column existence checks scattered through
// the pipeline with one check at the normalizer boundary.
type Contract struct {
	// Table is the logical table name, e.g. "fact" or "dim_city".
	Table string `json:"table"`

	// Required lists canonical column names. Entries are normalized before
	// comparison, so "City Key" and "city_key" are equivalent.
	Required []string `json:"required"`
}

// Check reports the first required column missing from t as a SchemaError.
func (c Contract) Check(t *table.Table) error {
	for _, col := range c.Required {
		n := NormalizeName(col)
		if !t.HasColumn(n) {
			name := c.Table
			if name == "" {
				name = t.Name()
			}
			return &table.SchemaError{Table: name, Column: n, Reason: "required column missing"}
		}
	}
	return nil
}

// NormalizeAndCheck normalizes t and checks it against c.
func NormalizeAndCheck(t *table.Table, c Contract) (*table.Table, error) {
	n, err := Normalize(t)
	if err != nil {
		return nil, err
	}
	if err := c.Check(n); err != nil {
		return nil, err
	}
	return n, nil
}
