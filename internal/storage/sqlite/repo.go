// Package sqlite stores pipeline output in SQLite through the pure-Go
// modernc driver. SQLite has no bulk-load protocol, so a batch is a
// prepared INSERT replayed inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"salesreport/internal/ddl"
	"salesreport/internal/storage"
)

// Dialect renders SQLite DDL. Timestamps are stored as ISO-8601 text.
var Dialect = ddl.Dialect{
	Name:  "sqlite",
	Ident: ddl.DoubleQuote,
	Types: map[ddl.Type]string{
		ddl.Text:      "TEXT",
		ddl.Float:     "REAL",
		ddl.Integer:   "INTEGER",
		ddl.Timestamp: "TEXT",
	},
	IfNotExists: ddl.CreateIfNotExists,
}

// Config binds a database to the table CopyFrom and Select work on.
type Config struct {
	DSN   string // a path, "file:sales.db?_pragma=busy_timeout(5000)" or ":memory:"
	Table string
}

// Repository implements storage.Repository.
type Repository struct {
	db    *sql.DB
	table string // quoted
}

var _ storage.Repository = (*Repository)(nil)

// open is swapped in tests.
var open = NewRepository

func init() {
	storage.RegisterDialect("sqlite", Dialect)
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := open(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}

// NewRepository opens and pings the database. The pool is pinned to one
// connection: each ":memory:" connection would otherwise be its own database.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("sqlite: empty DSN")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", cfg.DSN, err)
	}
	return &Repository{db: db, table: Dialect.QuoteFQN(cfg.Table)}, nil
}

func (r *Repository) Close() { _ = r.db.Close() }

// CopyFrom inserts all rows or none. A row whose width differs from
// columns aborts the batch.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (n int64, err error) {
	if len(columns) == 0 {
		return 0, errors.New("sqlite: insert without columns")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?%s)",
		r.table, Dialect.QuoteList(columns), strings.Repeat(", ?", len(columns)-1))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			n = 0
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("sqlite: row %d has %d values for %d columns", i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return n, nil
}

// Exec runs one statement. Blank statements are ignored.
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Select returns columns of every row in insertion order.
func (r *Repository) Select(ctx context.Context, columns []string) ([][]any, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", Dialect.QuoteList(columns), r.table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: select: %w", err)
	}
	out, err := storage.ScanRows(rows, len(columns))
	if err != nil {
		return nil, fmt.Errorf("sqlite: select: %w", err)
	}
	return out, nil
}
