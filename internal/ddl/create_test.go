package ddl

import (
	"strings"
	"testing"
)

var testDialect = Dialect{
	Name:  "test ddl",
	Quote: DoubleQuote,
	MapType: func(t Type) string {
		if t == Timestamp {
			return "TIMESTAMPTZ"
		}
		return "TEXT"
	},
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		fqn         string
		cols        []Column
		want        string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			fqn:         " ",
			cols:        []Column{{Name: "id", Type: Int}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			fqn:         "public.t",
			errContains: "at least one column is required",
		},
		{
			name:        "empty column name",
			fqn:         "t",
			cols:        []Column{{Name: "", Type: Text}},
			errContains: "column with empty name",
		},
		{
			name: "schema qualified",
			fqn:  "public.trips",
			cols: []Column{{Name: "vendor", Type: Text}, {Name: "pickup", Type: Timestamp}},
			want: "CREATE TABLE \"public\".\"trips\" (\n  \"vendor\" TEXT,\n  \"pickup\" TIMESTAMPTZ\n)",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := testDialect.BuildCreateTableSQL(testDialect.TableDef(tc.fqn, tc.cols))
			if tc.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("err=%v want contains %q", err, tc.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("sql mismatch:\n got: %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestBuildDropTableSQL(t *testing.T) {
	if got := testDialect.BuildDropTableSQL("a.b"); got != `DROP TABLE IF EXISTS "a"."b"` {
		t.Fatalf("got %q", got)
	}
	d := testDialect
	d.DropFormat = "IF OBJECT_ID(N'%[1]s', N'U') IS NOT NULL DROP TABLE %[1]s"
	if got := d.BuildDropTableSQL("t"); got != `IF OBJECT_ID(N'"t"', N'U') IS NOT NULL DROP TABLE "t"` {
		t.Fatalf("got %q", got)
	}
}

func TestDoubleQuoteEscapes(t *testing.T) {
	if got := DoubleQuote(`we"ird`); got != `"we""ird"` {
		t.Fatalf("got %s", got)
	}
}

func TestParseType(t *testing.T) {
	cases := map[string]Type{
		"":            Text,
		"String":      Text,
		"bigint":      Int,
		"double":      Float,
		"BOOLEAN":     Bool,
		"timestamptz": Timestamp,
		"date":        Date,
	}
	for in, want := range cases {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Fatalf("ParseType(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParseType("blob"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestSameNames(t *testing.T) {
	a := []Column{{Name: "x"}, {Name: "y"}}
	b := []Column{{Name: "y", Type: Int}, {Name: "x"}}
	if !SameNames(a, b) {
		t.Fatalf("expected same names regardless of order/type")
	}
	if SameNames(a, []Column{{Name: "x"}, {Name: "z"}}) || SameNames(a, a[:1]) {
		t.Fatalf("expected differing sets to compare unequal")
	}
}

func TestBuildInsertSQL(t *testing.T) {
	d := Dialect{Name: "test", Quote: DoubleQuote}
	got := d.BuildInsertSQL("s.t", []string{"a", "b"}, 2)
	want := `INSERT INTO "s"."t" ("a", "b") VALUES (?, ?), (?, ?)`
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}
