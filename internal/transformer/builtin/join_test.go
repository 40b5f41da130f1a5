package builtin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"salesreport/internal/table"
)

func mustStrings(t *testing.T, name string, header []string, recs ...[]string) *table.Table {
	t.Helper()
	tb, err := table.FromStrings(name, header, recs)
	require.NoError(t, err)
	return tb
}

func salesFact(t *testing.T) *table.Table {
	return mustStrings(t, "fact",
		[]string{"city_key", "invoice_date_key", "unit_price"},
		[]string{"1", "2016-06-01", "10"},
		[]string{"2", "2016-06-02", "20"},
		[]string{"1", "2016-06-02", "5"},
		[]string{"", "2016-06-03", "7"},
	)
}

func cityDim(t *testing.T) *table.Table {
	return mustStrings(t, "dim_city",
		[]string{"city_key", "city", "state_province"},
		[]string{"1", "Glen Avon", "California"},
		[]string{"3", "Sekiu", "Washington"},
	)
}

/*
TestJoin_LeftOuter verifies that every fact row survives exactly once in
order, matched rows pick up dimension attributes, and unmatched or keyless
rows carry Missing.
*/
func TestJoin_LeftOuter(t *testing.T) {
	fact := salesFact(t)
	out, err := Join(fact, JoinSpec{Dimension: cityDim(t), FactKeys: []string{"city_key"}, DimKeys: []string{"city_key"}})
	require.NoError(t, err)

	require.Equal(t, fact.Len(), out.Len())
	require.Equal(t, []string{"city_key", "invoice_date_key", "unit_price", "city", "state_province"}, out.Columns())

	require.Equal(t, "Glen Avon", out.Value(0, "city").String())
	require.True(t, out.Value(1, "city").IsMissing())
	require.True(t, out.Value(1, "state_province").IsMissing())
	require.Equal(t, "California", out.Value(2, "state_province").String())
	require.True(t, out.Value(3, "city").IsMissing())
	require.Equal(t, "7", out.Value(3, "unit_price").String())

	// The input is untouched.
	require.Len(t, fact.Columns(), 3)
}

func TestJoin_Sequential(t *testing.T) {
	date := mustStrings(t, "dim_date",
		[]string{"date", "month", "fiscal_year"},
		[]string{"2016-06-01", "June", "2016"},
		[]string{"2016-06-02", "June", "2016"},
	)
	out, err := Join(salesFact(t),
		JoinSpec{Dimension: cityDim(t), FactKeys: []string{"city_key"}, DimKeys: []string{"city_key"}},
		JoinSpec{Dimension: date, FactKeys: []string{"invoice_date_key"}, DimKeys: []string{"date"}, Columns: []string{"month"}},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"city_key", "invoice_date_key", "unit_price", "city", "state_province", "month"}, out.Columns())
	require.Equal(t, "June", out.Value(1, "month").String())
	require.True(t, out.Value(3, "month").IsMissing())
}

func TestJoin_CompositeKey(t *testing.T) {
	fact := mustStrings(t, "fact", []string{"a", "b"}, []string{"x", "1"}, []string{"x", "2"})
	dim := mustStrings(t, "dim", []string{"a", "b", "label"}, []string{"x", "2", "hit"})
	out, err := Join(fact, JoinSpec{Dimension: dim, FactKeys: []string{"a", "b"}, DimKeys: []string{"a", "b"}})
	require.NoError(t, err)
	require.True(t, out.Value(0, "label").IsMissing())
	require.Equal(t, "hit", out.Value(1, "label").String())
}

/*
TestJoin_Errors covers the fatal paths: absent keys on either side, a
dimension key that resolves to two rows, and appended columns that collide
with the fact side.
*/
func TestJoin_Errors(t *testing.T) {
	stock := mustStrings(t, "dim_stock_item",
		[]string{"stock_item_key", "unit_price", "recommended_retail_price"},
		[]string{"1", "3", "4"},
	)
	fact := mustStrings(t, "fact", []string{"stock_item_key", "unit_price"}, []string{"1", "10"})

	tests := []struct {
		name   string
		fact   *table.Table
		spec   JoinSpec
		target error
		side   string
	}{
		{
			name:   "fact_key_missing",
			fact:   salesFact(t),
			spec:   JoinSpec{Dimension: cityDim(t), FactKeys: []string{"town_key"}, DimKeys: []string{"city_key"}},
			target: table.ErrJoinKey,
			side:   "fact",
		},
		{
			name:   "dim_key_missing",
			fact:   salesFact(t),
			spec:   JoinSpec{Dimension: cityDim(t), FactKeys: []string{"city_key"}, DimKeys: []string{"key"}},
			target: table.ErrJoinKey,
			side:   "dimension",
		},
		{
			name: "duplicate_dim_key",
			fact: salesFact(t),
			spec: JoinSpec{
				Dimension: mustStrings(t, "dim_city", []string{"city_key", "city"}, []string{"1", "A"}, []string{"1", "B"}),
				FactKeys:  []string{"city_key"},
				DimKeys:   []string{"city_key"},
			},
			target: table.ErrJoinKey,
			side:   "dimension",
		},
		{
			name:   "column_collision",
			fact:   fact,
			spec:   JoinSpec{Dimension: stock, FactKeys: []string{"stock_item_key"}, DimKeys: []string{"stock_item_key"}},
			target: table.ErrSchema,
		},
		{
			name:   "projected_column_absent",
			fact:   fact,
			spec:   JoinSpec{Dimension: stock, FactKeys: []string{"stock_item_key"}, DimKeys: []string{"stock_item_key"}, Columns: []string{"brand"}},
			target: table.ErrSchema,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Join(tc.fact, tc.spec)
			require.ErrorIs(t, err, tc.target)
			if tc.side != "" {
				var jk *table.JoinKeyError
				require.ErrorAs(t, err, &jk)
				require.Equal(t, tc.side, jk.Side)
			}
		})
	}
}

func TestJoin_ProjectionAndPrefixResolveCollision(t *testing.T) {
	stock := mustStrings(t, "dim_stock_item",
		[]string{"stock_item_key", "unit_price", "recommended_retail_price"},
		[]string{"1", "3", "4"},
	)
	fact := mustStrings(t, "fact", []string{"stock_item_key", "unit_price"}, []string{"1", "10"})

	projected, err := Join(fact, JoinSpec{
		Dimension: stock,
		FactKeys:  []string{"stock_item_key"},
		DimKeys:   []string{"stock_item_key"},
		Columns:   []string{"recommended_retail_price"},
	})
	require.NoError(t, err)
	require.Equal(t, "10", projected.Value(0, "unit_price").String())
	require.Equal(t, "4", projected.Value(0, "recommended_retail_price").String())

	prefixed, err := Join(fact, JoinSpec{
		Dimension: stock,
		FactKeys:  []string{"stock_item_key"},
		DimKeys:   []string{"stock_item_key"},
		Prefix:    "stock_",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"stock_item_key", "unit_price", "stock_unit_price", "stock_recommended_retail_price"}, prefixed.Columns())
	require.Equal(t, "3", prefixed.Value(0, "stock_unit_price").String())
}
