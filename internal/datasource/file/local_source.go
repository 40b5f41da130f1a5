// Package file loads the pipeline's input tables from the local filesystem.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"salesreport/internal/datasource"
	"salesreport/internal/table"
)

var _ datasource.Source = (*Local)(nil)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a new Local data source bound to the provided filesystem
// path. The returned value is safe for concurrent use.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// Behavior:
//   - A context that is already done short-circuits with its error.
//   - A path that does not exist fails with a *table.FileError matching both
//     table.ErrFileNotFound and os.ErrNotExist, listing the files present in
//     the same directory.
//   - Other filesystem errors are wrapped in a *table.FileError with the path.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &table.FileError{
				Path:      l.path,
				Available: listDir(filepath.Dir(l.path)),
				Err:       fmt.Errorf("%w: %w", table.ErrFileNotFound, err),
			}
		}
		return nil, &table.FileError{Path: l.path, Err: err}
	}
	return f, nil
}

// listDir returns the sorted regular file names in dir, or nil when the
// directory itself cannot be read.
func listDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}
