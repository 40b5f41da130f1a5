// Package schema canonicalizes column names and checks tables against the
// declared expected schema, so later stages can address columns by stable
// names regardless of the source file's casing, spacing or accents.
package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"salesreport/internal/table"
)

// Separator replaces every internal whitespace run in a column name.
const Separator = "_"

// NormalizeName canonicalizes a column name: trim, case-fold, strip accents
// and collapse internal whitespace runs into a single Separator.
//
//	"  State Province " → "state_province"
//	"Año Fiscal"        → "ano_fiscal"
//	"Unit Price_x"      → "unit_price_x"
//
// Punctuation other than whitespace is kept. NormalizeName is idempotent.
func NormalizeName(s string) string {
	// Casers carry state; one per call keeps NormalizeName goroutine-safe.
	s = cases.Fold().String(strings.TrimSpace(s))

	// Decompose, drop nonspacing marks, recompose.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), Separator)
}

// Normalize returns t with every column name canonicalized. Two source
// columns that collapse to the same name make the schema ambiguous; that is
// reported as a SchemaError instead of silently dropping one of them.
func Normalize(t *table.Table) (*table.Table, error) {
	cols := t.Columns()
	seen := make(map[string]string, len(cols))
	for _, c := range cols {
		n := NormalizeName(c)
		if prev, dup := seen[n]; dup {
			return nil, &table.SchemaError{
				Table:  t.Name(),
				Column: n,
				Reason: "columns " + quote(prev) + " and " + quote(c) + " normalize to the same name",
			}
		}
		seen[n] = c
	}
	return t.RenameColumns(NormalizeName)
}

func quote(s string) string { return `"` + s + `"` }
