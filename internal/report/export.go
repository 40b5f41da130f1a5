package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"salesreport/internal/ddl"
	"salesreport/internal/metrics"
	"salesreport/internal/storage"
)

// KeySep joins the parts of a multi-column chart key in exported rows.
const KeySep = " | "

// ChartColumns are the exported chart row columns, in insert order.
var ChartColumns = []string{"run_id", "job", "chart", "group_key", "value", "created_at"}

// ChartRowsTable describes the export table.
func ChartRowsTable(fqn string) ddl.TableDef {
	return ddl.TableDef{
		FQN: fqn,
		Columns: []ddl.ColumnDef{
			{Name: "run_id", Type: ddl.Text},
			{Name: "job", Type: ddl.Text},
			{Name: "chart", Type: ddl.Text},
			{Name: "group_key", Type: ddl.Text},
			{Name: "value", Type: ddl.Float, Nullable: true},
			{Name: "created_at", Type: ddl.Timestamp},
		},
	}
}

// ExportStats summarizes one export.
type ExportStats struct {
	RunID   string
	Rows    int64
	Batches int64
}

// Export writes one row per chart group of res (map points included, under
// the map's name) through repo, all tagged with a fresh run id. NoValue is
// written as NULL.
func (d *Dataset) Export(ctx context.Context, repo storage.Repository, res *Result, batchSize int, log *slog.Logger) (ExportStats, error) {
	if log == nil {
		log = d.opts.Logger
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	st := ExportStats{RunID: uuid.NewString()}
	at := d.opts.Clock.Now().UTC()

	var rows [][]any
	for _, c := range res.Charts {
		for _, g := range c.Series {
			rows = append(rows, []any{st.RunID, res.Job, c.Name, strings.Join(g.Key, KeySep), nullable(g.Result.Value, g.Result.OK), at})
		}
	}
	if m := d.cfg.Map; m != nil {
		name := m.Name
		if name == "" {
			name = "map"
		}
		for _, p := range res.Map {
			rows = append(rows, []any{st.RunID, res.Job, name, p.City + KeySep + p.Region, nullable(p.Value.Value, p.Value.OK), at})
		}
	}

	start := d.opts.Clock.Now()
	ls, err := storage.CopyAll(ctx, log, repo, ChartColumns, rows, batchSize)
	metrics.RecordStep(res.Job, "export", err, d.opts.Clock.Since(start))
	st.Rows, st.Batches = ls.Rows, ls.Batches
	if err != nil {
		return st, fmt.Errorf("export run %s: %w", st.RunID, err)
	}
	metrics.RecordBatches(res.Job, ls.Batches)
	metrics.RecordRows(res.Job, "exported", ls.Rows)
	log.Info("report: exported", "run_id", st.RunID, "rows", ls.Rows, "batches", ls.Batches)
	return st, nil
}

func nullable(v float64, ok bool) any {
	if !ok {
		return nil
	}
	return v
}
