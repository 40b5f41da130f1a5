// Package builtin contains the reusable table transformers of the pipeline:
// value trimming, dimension joins, numeric coercion and derived columns.
package builtin

import (
	"strings"

	"salesreport/internal/table"
)

// nbspace is U+00A0; spreadsheet exports also leave its mis-decoded form "Â" + U+00A0.
const nbspace = "\u00a0"

// TrimValues trims every text cell and replaces non-breaking spaces with
// ordinary ones. Numeric and missing cells are left alone.
type TrimValues struct{}

func (TrimValues) Apply(in *table.Table) (*table.Table, error) {
	cols := in.Columns()
	rows := make([][]table.Value, in.Len())
	for i := range rows {
		r := in.Row(i)
		for j, v := range r {
			if v.Kind() != table.KindText {
				continue
			}
			s := v.String()
			s = strings.ReplaceAll(s, "Â"+nbspace, " ")
			s = strings.ReplaceAll(s, nbspace, " ")
			r[j] = table.Text(strings.TrimSpace(s))
		}
		rows[i] = r
	}
	return table.New(in.Name(), cols, rows)
}
