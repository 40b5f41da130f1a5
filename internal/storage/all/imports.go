// Package all wires all built-in storage backends into the storage factory.
//
// Importing it (as a blank import) runs the init functions of each backend,
// which register their factories and DDL dialects:
//
//   - "postgres" (salesreport/internal/storage/postgres)
//   - "mssql"    (salesreport/internal/storage/mssql)
//   - "mysql"    (salesreport/internal/storage/mysql)
//   - "sqlite"   (salesreport/internal/storage/sqlite)
//
// Typical usage in a cmd:
//
//	import _ "salesreport/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn, Table: "chart_rows"})
package all

import (
	_ "salesreport/internal/storage/mssql"
	_ "salesreport/internal/storage/mysql"
	_ "salesreport/internal/storage/postgres"
	_ "salesreport/internal/storage/sqlite"
)
