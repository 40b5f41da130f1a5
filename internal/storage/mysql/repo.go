// Package mysql stores pipeline output in MySQL or MariaDB through
// go-sql-driver/mysql. A batch becomes one multi-row INSERT.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"salesreport/internal/ddl"
	"salesreport/internal/storage"
)

// Dialect renders MySQL DDL. Text keys need a bounded length, so text is
// VARCHAR rather than TEXT.
var Dialect = ddl.Dialect{
	Name:  "mysql",
	Ident: ddl.Backtick,
	Types: map[ddl.Type]string{
		ddl.Text:      "VARCHAR(255)",
		ddl.Float:     "DOUBLE",
		ddl.Integer:   "BIGINT",
		ddl.Timestamp: "DATETIME(6)",
	},
	IfNotExists: ddl.CreateIfNotExists,
}

type Config struct {
	DSN   string // user:pass@tcp(host:3306)/sales?parseTime=true
	Table string
}

// Repository implements storage.Repository.
type Repository struct {
	db    *sql.DB
	table string // quoted
}

var _ storage.Repository = (*Repository)(nil)

var open = NewRepository

func init() {
	storage.RegisterDialect("mysql", Dialect)
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := open(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}

// NewRepository parses the DSN, opens a pool and pings it. parseTime is
// forced on so DATETIME columns scan as time.Time.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: dsn: %w", err)
	}
	mc.ParseTime = true
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping %s: %w", mc.Addr, err)
	}
	return &Repository{db: db, table: Dialect.QuoteFQN(cfg.Table)}, nil
}

func (r *Repository) Close() { _ = r.db.Close() }

// insertSQL renders a multi-row INSERT for n rows of len(columns) values.
func insertSQL(table string, columns []string, n int) string {
	one := "(?" + strings.Repeat(", ?", len(columns)-1) + ")"
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, Dialect.QuoteList(columns))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(one)
	}
	return b.String()
}

// CopyFrom writes rows with a single statement, so a batch lands whole or
// not at all.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, errors.New("mysql: insert without columns")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("mysql: row %d has %d values for %d columns", i, len(row), len(columns))
		}
		args = append(args, row...)
	}
	res, err := r.db.ExecContext(ctx, insertSQL(r.table, columns, len(rows)), args...)
	if err != nil {
		return 0, describe("insert", err)
	}
	return res.RowsAffected()
}

func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return describe("exec", err)
	}
	return nil
}

func (r *Repository) Select(ctx context.Context, columns []string) ([][]any, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", Dialect.QuoteList(columns), r.table))
	if err != nil {
		return nil, describe("select", err)
	}
	out, err := storage.ScanRows(rows, len(columns))
	if err != nil {
		return nil, describe("select", err)
	}
	return out, nil
}

// describe prefixes err with op and the server error number when known.
func describe(op string, err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return fmt.Errorf("mysql: %s [%d]: %w", op, me.Number, err)
	}
	return fmt.Errorf("mysql: %s: %w", op, err)
}
