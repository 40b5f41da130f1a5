package ddl

// Type is a logical column type. Each Dialect maps it to a SQL type.
type Type string

const (
	Text      Type = "text"
	Float     Type = "float"
	Integer   Type = "integer"
	Timestamp Type = "timestamp"
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Type: logical type, mapped through the dialect
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	Type       Type
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the table name (FQN, optionally "schema.table") and an
// ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
