package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// CopyFn writes rows, aligned to columns, and reports how many landed.
// Repository.CopyFrom is one.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadStats counts what a load wrote. Batches counts only batches that
// succeeded; Rows includes whatever a failing batch reported.
type LoadStats struct {
	Rows    int64
	Batches int64
}

type batcher struct {
	columns []string
	size    int
	copy    CopyFn
	log     *slog.Logger
	started time.Time

	pending [][]any
	stats   LoadStats
}

func (b *batcher) add(ctx context.Context, row []any) error {
	b.pending = append(b.pending, row)
	if len(b.pending) < b.size {
		return nil
	}
	return b.flush(ctx)
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	rows := b.pending
	b.pending = make([][]any, 0, b.size)

	n, err := b.copy(ctx, b.columns, rows)
	b.stats.Rows += n
	if err != nil {
		b.log.Error("loader: batch failed", "batch", b.stats.Batches+1, "rows", len(rows), "written", b.stats.Rows, "err", err)
		return err
	}
	b.stats.Batches++
	b.log.Debug("loader: batch written",
		"batch", b.stats.Batches,
		"rows", n,
		"written", b.stats.Rows,
		"elapsed", time.Since(b.started).Truncate(time.Millisecond))
	return nil
}

// LoadBatches reads rows from in until it is closed and writes them through
// copyFn in groups of batchSize; the last group may be short. It stops at the
// first copy error or when ctx is done.
func LoadBatches(ctx context.Context, log *slog.Logger, columns []string, in <-chan []any, batchSize int, copyFn CopyFn) (LoadStats, error) {
	switch {
	case batchSize <= 0:
		return LoadStats{}, errors.New("loader: batch size must be positive")
	case copyFn == nil:
		return LoadStats{}, errors.New("loader: nil copy function")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	b := &batcher{
		columns: columns,
		size:    batchSize,
		copy:    copyFn,
		log:     log,
		started: time.Now(),
		pending: make([][]any, 0, batchSize),
	}
	for {
		select {
		case <-ctx.Done():
			return b.stats, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return b.stats, b.flush(ctx)
			}
			if err := b.add(ctx, row); err != nil {
				return b.stats, err
			}
		}
	}
}

// CopyAll writes rows into repo in batches of batchSize. A producer
// goroutine feeds LoadBatches; either side failing stops the other.
func CopyAll(ctx context.Context, log *slog.Logger, repo Repository, columns []string, rows [][]any, batchSize int) (LoadStats, error) {
	g, gctx := errgroup.WithContext(ctx)
	in := make(chan []any)

	g.Go(func() error {
		defer close(in)
		for _, r := range rows {
			select {
			case in <- r:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var stats LoadStats
	g.Go(func() error {
		var err error
		stats, err = LoadBatches(gctx, log, columns, in, batchSize, repo.CopyFrom)
		return err
	})

	err := g.Wait()
	return stats, err
}
