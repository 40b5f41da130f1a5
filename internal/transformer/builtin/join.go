package builtin

import (
	"fmt"
	"strings"

	"salesreport/internal/table"
)

// keySep joins the parts of a composite key. It cannot occur in CSV or
// spreadsheet text that survived TrimValues.
const keySep = "\x1f"

// JoinSpec declares one dimension join. FactKeys and DimKeys pair up
// positionally. Columns, when set, limits which dimension columns are
// appended; Prefix is prepended to each appended name. Dimension key columns
// are never appended.
type JoinSpec struct {
	Dimension *table.Table
	FactKeys  []string
	DimKeys   []string
	Columns   []string
	Prefix    string
}

// Join left-joins fact with each spec in order. Every fact row appears once,
// in its original position; rows without a match get Missing for every
// appended column. The fact side is authoritative: an appended column that
// already exists in the result is a SchemaError.
func Join(fact *table.Table, specs ...JoinSpec) (*table.Table, error) {
	out := fact
	for _, s := range specs {
		next, err := joinOne(out, s)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// Apply makes a JoinSpec usable as a Transformer.
func (s JoinSpec) Apply(in *table.Table) (*table.Table, error) { return joinOne(in, s) }

func joinOne(left *table.Table, s JoinSpec) (*table.Table, error) {
	dim := s.Dimension
	if dim == nil {
		return nil, fmt.Errorf("join: nil dimension table")
	}
	if len(s.FactKeys) == 0 || len(s.FactKeys) != len(s.DimKeys) {
		return nil, &table.JoinKeyError{
			Table:  dim.Name(),
			Column: strings.Join(s.DimKeys, ","),
			Side:   "dimension",
			Reason: fmt.Sprintf("%d fact keys paired with %d dimension keys", len(s.FactKeys), len(s.DimKeys)),
		}
	}

	factIdx, err := keyIndexes(left, s.FactKeys, "fact")
	if err != nil {
		return nil, err
	}
	dimIdx, err := keyIndexes(dim, s.DimKeys, "dimension")
	if err != nil {
		return nil, err
	}

	appendCols, appendIdx, err := appendedColumns(left, s)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string]int, dim.Len())
	for i := 0; i < dim.Len(); i++ {
		k, ok := rowKey(dim, i, dimIdx)
		if !ok {
			continue
		}
		if prev, dup := lookup[k]; dup {
			return nil, &table.JoinKeyError{
				Table:  dim.Name(),
				Column: strings.Join(s.DimKeys, ","),
				Side:   "dimension",
				Reason: fmt.Sprintf("duplicate key %q in rows %d and %d", strings.ReplaceAll(k, keySep, "|"), prev, i),
			}
		}
		lookup[k] = i
	}

	cols := left.Columns()
	base := len(cols)
	cols = append(cols, appendCols...)
	width := len(cols)
	rows := make([][]table.Value, left.Len())
	for i := range rows {
		r := make([]table.Value, width)
		copy(r, left.Row(i))
		if k, ok := rowKey(left, i, factIdx); ok {
			if j, hit := lookup[k]; hit {
				for n, src := range appendIdx {
					r[base+n] = dim.At(j, src)
				}
			}
		}
		rows[i] = r
	}
	return table.New(left.Name(), cols, rows)
}

func keyIndexes(t *table.Table, keys []string, side string) ([]int, error) {
	idx := make([]int, len(keys))
	for n, k := range keys {
		j, ok := t.ColumnIndex(k)
		if !ok {
			return nil, &table.JoinKeyError{Table: t.Name(), Column: k, Side: side, Reason: "key column not found"}
		}
		idx[n] = j
	}
	return idx, nil
}

// rowKey builds the lookup key for row i. A row with any missing or empty
// key part never matches.
func rowKey(t *table.Table, i int, idx []int) (string, bool) {
	parts := make([]string, len(idx))
	for n, j := range idx {
		s := t.At(i, j).String()
		if s == "" {
			return "", false
		}
		parts[n] = s
	}
	return strings.Join(parts, keySep), true
}

func appendedColumns(left *table.Table, s JoinSpec) ([]string, []int, error) {
	dim := s.Dimension
	isKey := make(map[string]bool, len(s.DimKeys))
	for _, k := range s.DimKeys {
		isKey[k] = true
	}

	source := s.Columns
	if len(source) == 0 {
		source = dim.Columns()
	}

	var (
		names []string
		idx   []int
		seen  = map[string]bool{}
	)
	for _, c := range source {
		if isKey[c] {
			continue
		}
		j, ok := dim.ColumnIndex(c)
		if !ok {
			return nil, nil, &table.SchemaError{Table: dim.Name(), Column: c, Reason: "projected column not found"}
		}
		name := s.Prefix + c
		if left.HasColumn(name) || seen[name] {
			return nil, nil, &table.SchemaError{
				Table:  dim.Name(),
				Column: name,
				Reason: fmt.Sprintf("column already present in %q; project it out or set a prefix", left.Name()),
			}
		}
		seen[name] = true
		names = append(names, name)
		idx = append(idx, j)
	}
	return names, idx, nil
}
