package xlsx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesreport/internal/table"
)

func workbook(t *testing.T, sheets map[string][][]any, order ...string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			row := row
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParse_FirstSheet(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"Sale": {
			{"City Key", "Quantity", "Unit Price"},
			{"41", "10", "2.5"},
			{},
			{"42", "3"},
		},
		"Other": {{"x"}, {"1"}},
	}, "Sale", "Other")

	tb, err := Parse(buf, "fact_sale", Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"City Key", "Quantity", "Unit Price"}, tb.Columns())
	require.Equal(t, 2, tb.Len())
	require.Equal(t, table.Text("10"), tb.Value(0, "Quantity"))
	require.True(t, tb.Value(1, "Unit Price").IsMissing())
}

func TestParse_NamedSheet(t *testing.T) {
	sheets := map[string][][]any{
		"Sale":  {{"a"}, {"1"}},
		"Other": {{"x", "y"}, {"1", "2"}},
	}

	tb, err := Parse(workbook(t, sheets, "Sale", "Other"), "t", Options{Sheet: "Other"})
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, tb.Columns())

	_, err = Parse(workbook(t, sheets, "Sale", "Other"), "t", Options{Sheet: "Missing"})
	require.ErrorContains(t, err, `sheet "Missing" not found`)
}

func TestParse_NotAWorkbook(t *testing.T) {
	_, err := Parse(bytes.NewBufferString("City,Key\n1,2\n"), "t", Options{})
	require.Error(t, err)
}
