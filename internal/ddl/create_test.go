package ddl

import (
	"strings"
	"testing"
)

var testDialect = Dialect{
	Name:        "test",
	Ident:       DoubleQuote,
	Types:       map[Type]string{Text: "TEXT", Float: "DOUBLE PRECISION"},
	IfNotExists: CreateIfNotExists,
}

// TestCreateTable verifies rendering and the errors for invalid definitions.
func TestCreateTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", Type: Text}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Type: Text}}},
			errContains: "column with empty name",
		},
		{
			name:        "unmapped type returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "at", Type: Timestamp}}},
			errContains: `no type for "timestamp"`,
		},
		{
			name: "schema qualified with primary key",
			def: TableDef{FQN: "public.chart_rows", Columns: []ColumnDef{
				{Name: "run_id", Type: Text, PrimaryKey: true},
				{Name: "value", Type: Float, Nullable: true},
			}},
			wantSQL: "CREATE TABLE IF NOT EXISTS \"public\".\"chart_rows\" (\n" +
				"  \"run_id\" TEXT NOT NULL,\n" +
				"  \"value\" DOUBLE PRECISION,\n" +
				"  PRIMARY KEY (\"run_id\")\n" +
				");",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := testDialect.CreateTable(tc.def)
			if tc.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tc.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.wantSQL {
				t.Fatalf("sql mismatch\n got: %q\nwant: %q", got, tc.wantSQL)
			}
		})
	}
}

func TestIdentQuoting(t *testing.T) {
	t.Parallel()
	if got := DoubleQuote(`a"b`); got != `"a""b"` {
		t.Fatalf("DoubleQuote = %s", got)
	}
	if got := Bracket("a]b"); got != "[a]]b]" {
		t.Fatalf("Bracket = %s", got)
	}
	if got := Backtick("a`b"); got != "`a``b`" {
		t.Fatalf("Backtick = %s", got)
	}
	d := Dialect{Ident: Bracket}
	if got := d.QuoteFQN("dbo.geo"); got != "[dbo].[geo]" {
		t.Fatalf("QuoteFQN = %s", got)
	}
	if got := d.QuoteList([]string{"city", "lat"}); got != "[city], [lat]" {
		t.Fatalf("QuoteList = %s", got)
	}
}

func TestColumnNames(t *testing.T) {
	t.Parallel()
	def := TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a"}, {Name: "b"}}}
	if got := strings.Join(def.ColumnNames(), ","); got != "a,b" {
		t.Fatalf("ColumnNames = %s", got)
	}
}
