package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"salesreport/internal/ddl"
	"salesreport/internal/storage"
)

var chartRows = ddl.TableDef{
	FQN: "chart_rows",
	Columns: []ddl.ColumnDef{
		{Name: "run_id", Type: ddl.Text},
		{Name: "chart", Type: ddl.Text},
		{Name: "group_key", Type: ddl.Text},
		{Name: "value", Type: ddl.Float, Nullable: true},
	},
}

func memRepo(t *testing.T) *Repository {
	t.Helper()
	r, err := NewRepository(context.Background(), Config{DSN: ":memory:", Table: chartRows.FQN})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	require.NoError(t, storage.EnsureTable(context.Background(), "sqlite", r, chartRows))
	return r
}

func TestCopyFromAndSelect(t *testing.T) {
	r := memRepo(t)
	ctx := context.Background()

	// EnsureTable is repeatable.
	require.NoError(t, storage.EnsureTable(ctx, "sqlite", r, chartRows))

	n, err := r.CopyFrom(ctx, chartRows.ColumnNames(), [][]any{
		{"run-1", "profit_by_city", "Sekiu", 4.0},
		{"run-1", "profit_by_city", "Kerby", nil},
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, err := r.Select(ctx, []string{"group_key", "value"})
	require.NoError(t, err)
	require.Equal(t, [][]any{{"Sekiu", 4.0}, {"Kerby", nil}}, got)
}

func TestCopyFrom_RaggedBatchRollsBack(t *testing.T) {
	r := memRepo(t)
	ctx := context.Background()

	_, err := r.CopyFrom(ctx, nil, [][]any{{1}})
	require.Error(t, err)

	n, err := r.CopyFrom(ctx, []string{"group_key"}, nil)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = r.CopyFrom(ctx, []string{"run_id", "group_key"}, [][]any{{"r", "Sekiu"}, {"r"}})
	require.ErrorContains(t, err, "row 1 has 1 values for 2 columns")
	require.Zero(t, n)

	got, err := r.Select(ctx, []string{"group_key"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestNewRepository(t *testing.T) {
	_, err := NewRepository(context.Background(), Config{DSN: " "})
	require.ErrorContains(t, err, "empty DSN")

	_, err = NewRepository(context.Background(), Config{DSN: filepath.Join(t.TempDir(), "missing", "sales.db")})
	require.Error(t, err)
}

func TestCopyAllIntoFile(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "report.db")
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn, Table: chartRows.FQN})
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, storage.EnsureTable(ctx, "sqlite", repo, chartRows))

	var rows [][]any
	for i := 0; i < 7; i++ {
		rows = append(rows, []any{"run-2", "quantity_by_month", fmt.Sprintf("2016-%02d", i+1), float64(i)})
	}
	st, err := storage.CopyAll(ctx, nil, repo, chartRows.ColumnNames(), rows, 3)
	require.NoError(t, err)
	require.Equal(t, storage.LoadStats{Rows: 7, Batches: 3}, st)

	got, err := repo.Select(ctx, []string{"group_key"})
	require.NoError(t, err)
	require.Len(t, got, 7)
	require.Equal(t, "2016-07", got[6][0])
}

func TestRegistration(t *testing.T) {
	orig := open
	t.Cleanup(func() { open = orig })

	var got Config
	open = func(_ context.Context, cfg Config) (*Repository, error) {
		got = cfg
		return nil, errors.New("refused")
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: "sales.db", Table: "geocode_cache"})
	require.ErrorContains(t, err, "refused")
	require.Nil(t, repo)
	require.Equal(t, Config{DSN: "sales.db", Table: "geocode_cache"}, got)
}
