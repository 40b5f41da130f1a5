package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesreport/internal/table"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func writeWorkbook(t *testing.T, dir, name string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	p := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(p))
	return p
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "DimDate.csv", "Date;Fiscal Year\n2016-06-01;2016\n")
	xlsxPath := writeWorkbook(t, dir, "DimCity.xlsx", [][]any{{"City Key", "City"}, {"1", "Sekiu"}})

	d, err := Load(context.Background(), "dim_date", csvPath, Options{Comma: ';'})
	require.NoError(t, err)
	require.Equal(t, []string{"Date", "Fiscal Year"}, d.Columns())
	require.Equal(t, table.Text("2016"), d.Value(0, "Fiscal Year"))

	c, err := Load(context.Background(), "dim_city", xlsxPath, Options{})
	require.NoError(t, err)
	require.Equal(t, "dim_city", c.Name())
	require.Equal(t, table.Text("Sekiu"), c.Value(0, "City"))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "hello")

	_, err := Load(context.Background(), "x", filepath.Join(dir, "notes.txt"), Options{})
	require.ErrorIs(t, err, table.ErrUnsupportedFormat)

	_, err = Load(context.Background(), "x", filepath.Join(dir, "FactJuneSale.xlsx"), Options{})
	require.ErrorIs(t, err, table.ErrFileNotFound)
	var fe *table.FileError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, []string{"notes.txt"}, fe.Available)

	bad := writeFile(t, dir, "broken.xlsx", "not a zip")
	_, err = Load(context.Background(), "x", bad, Options{})
	require.ErrorAs(t, err, &fe)
	require.Equal(t, bad, fe.Path)
}

/*
TestCache_ContentIdentity verifies that unchanged content is parsed once,
that a changed file is re-parsed, and that a hit is renamed for its caller.
*/
func TestCache_ContentIdentity(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "DimDate.csv", "Date\n2016-06-01\n")
	c := NewCache()
	ctx := context.Background()

	a, err := c.Load(ctx, "dim_date", p, Options{})
	require.NoError(t, err)
	b, err := c.Load(ctx, "dates", p, Options{})
	require.NoError(t, err)
	require.Equal(t, "dates", b.Name())
	require.Equal(t, a.Len(), b.Len())
	hits, misses := c.Stats()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(1), misses)

	writeFile(t, dir, "DimDate.csv", "Date\n2016-06-01\n2016-06-02\n")
	d, err := c.Load(ctx, "dim_date", p, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())
	_, misses = c.Stats()
	require.Equal(t, int64(2), misses)

	// Same bytes, different parse options: a separate entry.
	e, err := c.Load(ctx, "dim_date", p, Options{NoHeader: true})
	require.NoError(t, err)
	require.Equal(t, 3, e.Len())
	require.Equal(t, []string{"col_0"}, e.Columns())
	_, misses = c.Stats()
	require.Equal(t, int64(3), misses)
}

func TestCache_Concurrent(t *testing.T) {
	p := writeFile(t, t.TempDir(), "DimCity.csv", "City\nSekiu\nKerby\n")
	c := NewCache()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tb, err := c.Load(context.Background(), "dim_city", p, Options{})
			if err == nil && tb.Len() != 2 {
				err = os.ErrInvalid
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	_, misses := c.Stats()
	require.Equal(t, int64(1), misses)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	specs := []Spec{
		{Name: "dim_date", Path: writeFile(t, dir, "DimDate.csv", "Date\n2016-06-01\n")},
		{Name: "dim_city", Path: writeFile(t, dir, "DimCity.csv", "City\nSekiu\n")},
	}

	got, err := LoadAll(context.Background(), specs, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "dim_city", got["dim_city"].Name())

	specs = append(specs, Spec{Name: "fact_sale", Path: filepath.Join(dir, "FactJuneSale.xlsx")})
	_, err = LoadAll(context.Background(), specs, NewCache().Load)
	require.ErrorIs(t, err, table.ErrFileNotFound)
	require.ErrorContains(t, err, "load fact_sale")
}
