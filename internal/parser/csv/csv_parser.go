// Package csv parses delimited text into raw tables. Every cell is ingested
// as text; typing is left to the coercion step. Malformed rows are skipped
// and counted rather than failing the whole file.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"salesreport/internal/table"
)

// Options configures the CSV parser behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// NoHeader marks input whose first row is data. Columns are then named
	// col_0, col_1, ...
	NoHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// ExpectedFields, when > 0, enforces a fixed field count per record even
	// if the header is wider or narrower.
	ExpectedFields int

	// Logger receives one debug line per skipped row, up to skipLogLimit.
	Logger *slog.Logger
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

const skipLogLimit = 400

// Parse reads every record from r into a table named name and returns the
// number of rows skipped because of parse errors or a field-count mismatch.
// Quoting is lenient: a stray quote inside an unquoted field is kept as data.
func (p *Parser) Parse(r io.Reader, name string) (*table.Table, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	log := p.opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var headers []string
	var records [][]string
	skipped := 0

	if !p.opt.NoHeader {
		h, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("read csv header of %s: empty input", name)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv header of %s: %w", name, err)
		}
		headers = normalizeHeaders(h)
	}
	width := len(headers)
	if p.opt.ExpectedFields > 0 {
		width = p.opt.ExpectedFields
	}

	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				log.Debug("csv: skipping row", "table", name, "record", line, "err", err)
			}
			skipped++
			continue
		}
		if headers == nil {
			// First data row fixes the width of a header-less file.
			if width == 0 {
				width = len(row)
			}
			headers = syntheticHeaders(width)
		}
		if len(row) != width {
			if skipped < skipLogLimit {
				log.Debug("csv: skipping row", "table", name, "record", line,
					"expected", width, "got", len(row))
			}
			skipped++
			continue
		}
		if p.opt.TrimSpace {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, row)
	}
	if headers == nil {
		headers = syntheticHeaders(width)
	}
	if len(headers) != width {
		headers = fitHeaders(headers, width)
	}

	t, err := table.FromStrings(name, headers, records)
	if err != nil {
		return nil, skipped, err
	}
	return t, skipped, nil
}

// normalizeHeaders trims header cells and strips a UTF-8 BOM from the first.
// Blank header cells get a positional name. Canonical naming happens later in
// the schema normalizer.
func normalizeHeaders(h []string) []string {
	res := append([]string(nil), h...)
	for i, col := range res {
		if i == 0 {
			col = strings.TrimPrefix(col, "\uFEFF")
		}
		c := strings.TrimSpace(col)
		if c == "" {
			c = fmt.Sprintf("col_%d", i)
		}
		res[i] = c
	}
	return res
}

func syntheticHeaders(n int) []string {
	h := make([]string, n)
	for i := range h {
		h[i] = fmt.Sprintf("col_%d", i)
	}
	return h
}

// fitHeaders pads or truncates headers to n columns.
func fitHeaders(h []string, n int) []string {
	if len(h) >= n {
		return h[:n]
	}
	out := append([]string(nil), h...)
	for i := len(h); i < n; i++ {
		out = append(out, fmt.Sprintf("col_%d", i))
	}
	return out
}
