// Package table holds the in-memory tabular model shared by every pipeline
// stage: raw tables as loaded (all text), normalized tables, joined tables
// and filtered tables are all *Table values.
//
// A Table is immutable once constructed. Every transformation returns a new
// Table, and accessors hand out copies, so a loaded Table can be shared by
// concurrent readers without locking.
package table

import (
	"fmt"
)

// Table is a named, ordered set of columns over rows of Values.
type Table struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New builds a Table, taking ownership of rows. Column names must be unique
// and every row must be exactly as wide as the header.
func New(name string, columns []string, rows [][]Value) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, &SchemaError{Table: name, Column: c, Reason: "duplicate column name"}
		}
		index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, &SchemaError{
				Table:  name,
				Column: "",
				Reason: fmt.Sprintf("row %d has %d fields, header has %d", i, len(r), len(columns)),
			}
		}
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{name: name, columns: cols, index: index, rows: rows}, nil
}

// FromStrings builds a raw table where every cell is Text. Empty fields stay
// as empty text; deciding that "" means missing is the coercion step's job.
// Records narrower than the header are padded with Missing and wider ones are
// truncated, so column positions stay stable.
func FromStrings(name string, header []string, records [][]string) (*Table, error) {
	rows := make([][]Value, 0, len(records))
	for _, rec := range records {
		row := make([]Value, len(header))
		for i := 0; i < len(header) && i < len(rec); i++ {
			row[i] = Text(rec[i])
		}
		rows = append(rows, row)
	}
	return New(name, header, rows)
}

func (t *Table) Name() string { return t.name }
func (t *Table) Len() int     { return len(t.rows) }

// Columns returns a copy of the ordered column names.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnIndex returns the position of column c.
func (t *Table) ColumnIndex(c string) (int, bool) {
	i, ok := t.index[c]
	return i, ok
}

func (t *Table) HasColumn(c string) bool {
	_, ok := t.index[c]
	return ok
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// Value returns the cell at row i, column c. Unknown columns read as Missing.
func (t *Table) Value(i int, c string) Value {
	j, ok := t.index[c]
	if !ok {
		return Missing()
	}
	return t.rows[i][j]
}

// At returns the cell at row i, column position j.
func (t *Table) At(i, j int) Value { return t.rows[i][j] }

// Column returns a copy of every cell in column c.
func (t *Table) Column(c string) ([]Value, error) {
	j, ok := t.index[c]
	if !ok {
		return nil, t.missingColumn(c)
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Require returns a SchemaError naming the first of cols not in the table.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if _, ok := t.index[c]; !ok {
			return t.missingColumn(c)
		}
	}
	return nil
}

func (t *Table) missingColumn(c string) error {
	return &SchemaError{Table: t.name, Column: c, Reason: "column not found"}
}

// Select returns a new table holding the given rows, in the given order.
func (t *Table) Select(indices []int) *Table {
	rows := make([][]Value, len(indices))
	for k, i := range indices {
		rows[k] = t.rows[i]
	}
	return &Table{name: t.name, columns: t.columns, index: t.index, rows: rows}
}

// Rename returns the same data under a different table name.
func (t *Table) Rename(name string) *Table {
	return &Table{name: name, columns: t.columns, index: t.index, rows: t.rows}
}

// WithColumn returns a new table where column c holds vals. An existing
// column is replaced in place; a new one is appended.
func (t *Table) WithColumn(c string, vals []Value) (*Table, error) {
	if len(vals) != len(t.rows) {
		return nil, &SchemaError{
			Table:  t.name,
			Column: c,
			Reason: fmt.Sprintf("column has %d values, table has %d rows", len(vals), len(t.rows)),
		}
	}
	j, replace := t.index[c]
	cols := t.columns
	index := t.index
	width := len(t.columns)
	if !replace {
		cols = append(t.Columns(), c)
		index = make(map[string]int, len(cols))
		for i, name := range cols {
			index[name] = i
		}
		j = width
		width++
	}
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		nr := make([]Value, width)
		copy(nr, r)
		nr[j] = vals[i]
		rows[i] = nr
	}
	return &Table{name: t.name, columns: cols, index: index, rows: rows}, nil
}

// RenameColumns returns a new table whose column names are mapped through
// fn. The result must still have unique names.
func (t *Table) RenameColumns(fn func(string) string) (*Table, error) {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = fn(c)
	}
	return New(t.name, cols, t.rows)
}

// Distinct returns the distinct non-missing values of column c in first-seen
// order, and whether any cell was missing.
func (t *Table) Distinct(c string) ([]string, bool, error) {
	j, ok := t.index[c]
	if !ok {
		return nil, false, t.missingColumn(c)
	}
	var (
		out     []string
		seen    = map[string]struct{}{}
		missing bool
	)
	for _, r := range t.rows {
		v := r[j]
		if v.IsMissing() {
			missing = true
			continue
		}
		s := v.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, missing, nil
}
