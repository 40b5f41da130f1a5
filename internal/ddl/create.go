// Package ddl defines a small, backend-agnostic model for SQL DDL and renders
// idempotent CREATE TABLE statements for each registered dialect.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect describes how one database spells identifiers, types and
// "create if missing".
type Dialect struct {
	Name string

	// Ident quotes one identifier segment.
	Ident func(string) string

	// Types maps logical types to SQL types.
	Types map[Type]string

	// IfNotExists wraps a plain CREATE TABLE so it is a no-op when the table
	// exists. fqn is already quoted.
	IfNotExists func(fqn, create string) string
}

// QuoteFQN quotes every dot-separated segment of name.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Ident(p)
	}
	return strings.Join(parts, ".")
}

// QuoteList quotes each column and joins them with ", ".
func (d Dialect) QuoteList(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = d.Ident(c)
	}
	return strings.Join(q, ", ")
}

// CreateTable renders t as an idempotent CREATE TABLE statement.
//
// Each column is rendered as
//
//	<ident> <sql type> [NOT NULL]
//
// and primary key columns are collected into a trailing PRIMARY KEY clause.
func (d Dialect) CreateTable(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ, ok := d.Types[c.Type]
		if !ok {
			return "", fmt.Errorf("ddl: %s has no type for %q (column %s)", d.Name, c.Type, name)
		}
		def := d.Ident(name) + " " + typ
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pks = append(pks, d.Ident(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	q := d.QuoteFQN(fqn)
	create := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", q, strings.Join(cols, ",\n  "))
	if d.IfNotExists != nil {
		return d.IfNotExists(q, create), nil
	}
	return create + ";", nil
}

// DoubleQuote quotes an identifier the ANSI way, as Postgres and SQLite do.
func DoubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// Bracket quotes an identifier the SQL Server way.
func Bracket(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// Backtick quotes an identifier the MySQL way.
func Backtick(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// CreateIfNotExists is the IfNotExists form shared by Postgres, SQLite and
// MySQL.
func CreateIfNotExists(_ string, create string) string {
	return strings.Replace(create, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1) + ";"
}
