package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"salesreport/internal/datasource"
	pcsv "salesreport/internal/parser/csv"
	"salesreport/internal/parser/xlsx"
	"salesreport/internal/table"
)

// Format is an input file format, chosen by extension.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf maps a path's extension to a Format. Unknown extensions fail with
// a *table.FileError matching table.ErrUnsupportedFormat.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", &table.FileError{Path: path, Err: table.ErrUnsupportedFormat}
}

// Options tunes parsing. Sheet applies to XLSX, every other field to CSV.
type Options struct {
	Comma rune
	Sheet string

	// NoHeader, TrimSpace and ExpectedFields apply to CSV only; see the csv
	// parser's Options.
	NoHeader       bool
	TrimSpace      bool
	ExpectedFields int

	Logger *slog.Logger
}

func (o Options) key() string {
	return fmt.Sprintf("%q|%q|%t|%t|%d", o.Comma, o.Sheet, o.NoHeader, o.TrimSpace, o.ExpectedFields)
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Load reads path and parses it into a raw table named name. Every cell of
// the result is text or missing.
func Load(ctx context.Context, name, path string, opt Options) (*table.Table, error) {
	b, err := readAll(ctx, path)
	if err != nil {
		return nil, err
	}
	return parse(b, name, path, opt)
}

func readAll(ctx context.Context, path string) ([]byte, error) {
	// Reject the format before touching the disk.
	if _, err := FormatOf(path); err != nil {
		return nil, err
	}
	return drain(ctx, NewLocal(path), path)
}

// drain reads src to the end.
func drain(ctx context.Context, src datasource.Source, path string) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, &table.FileError{Path: path, Err: err}
	}
	return b, nil
}

func parse(b []byte, name, path string, opt Options) (*table.Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	log := opt.logger()

	var t *table.Table
	switch format {
	case FormatCSV:
		var skipped int
		p := pcsv.NewParser(pcsv.Options{
			NoHeader:       opt.NoHeader,
			Comma:          opt.Comma,
			TrimSpace:      opt.TrimSpace,
			ExpectedFields: opt.ExpectedFields,
			Logger:         log,
		})
		t, skipped, err = p.Parse(bytes.NewReader(b), name)
		if skipped > 0 {
			log.Warn("file: skipped malformed rows", "table", name, "path", path, "skipped", skipped)
		}
	case FormatXLSX:
		t, err = xlsx.Parse(bytes.NewReader(b), name, xlsx.Options{Sheet: opt.Sheet})
	}
	if err != nil {
		return nil, &table.FileError{Path: path, Err: err}
	}
	log.Debug("file: loaded", "table", name, "path", path, "rows", t.Len(), "columns", len(t.Columns()))
	return t, nil
}
