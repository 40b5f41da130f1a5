// Package datasource defines where raw input bytes come from. Concrete
// sources live in subpackages.
package datasource

import (
	"context"
	"io"
)

// Source opens a stream of raw bytes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
