// Package xlsx reads one worksheet of an Excel workbook into a raw table.
// Like the CSV parser, every cell is ingested as its displayed text.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"salesreport/internal/table"
)

// Options selects the worksheet. When Sheet is empty the first sheet is used.
type Options struct {
	Sheet string
}

// Parse reads the header row and all data rows of the selected sheet. Blank
// rows are dropped. Rows shorter than the header are padded with missing
// cells; cells past the header width are ignored.
func Parse(r io.Reader, name string, opt Options) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", name)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("workbook %s: sheet %q not found (have %s)",
			name, sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, name, err)
	}

	var header []string
	var records [][]string
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if header == nil {
			header = headers(row)
			continue
		}
		records = append(records, row)
	}
	if header == nil {
		return nil, fmt.Errorf("sheet %q of %s: no header row", sheet, name)
	}
	return table.FromStrings(name, header, records)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func headers(row []string) []string {
	// Trailing empty header cells carry no column.
	n := len(row)
	for n > 0 && strings.TrimSpace(row[n-1]) == "" {
		n--
	}
	h := make([]string, n)
	for i := 0; i < n; i++ {
		c := strings.TrimSpace(row[i])
		if c == "" {
			c = fmt.Sprintf("col_%d", i)
		}
		h[i] = c
	}
	return h
}
