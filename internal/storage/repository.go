// Package storage contains storage-agnostic contracts and utilities: the
// Repository interface, a backend registry, DDL bootstrapping and a batched
// loader. Concrete backends register themselves from their init functions;
// import storage/all to enable every built-in backend.
package storage

import "context"

// Repository is one destination table in one database.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns into the bound table and
	// returns the number of rows written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Select reads the given columns of every row of the bound table.
	Select(ctx context.Context, columns []string) ([][]any, error)
	Close()
}

// Config selects a backend and binds the repository to a table.
type Config struct {
	Kind  string // "sqlite", "postgres", "mssql"
	DSN   string
	Table string // may be schema-qualified, e.g. "dbo.chart_rows"
}
