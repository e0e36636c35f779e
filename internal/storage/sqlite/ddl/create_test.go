package ddl

import (
	"strings"
	"testing"

	"schemagen/internal/schema"
)

func simpleBean() *schema.RecordType {
	return &schema.RecordType{
		Name: "SimpleBean",
		Fields: []schema.Field{
			{Name: "id", Type: schema.TypeInt, PrimaryKey: true, AutoIncrement: true},
			{Name: "active", Type: schema.TypeBool},
			{Name: "str", Type: schema.TypeString},
			{Name: "date", Type: "timestamp"},
		},
	}
}

// TestBuildCreateTableSQL covers the DDL synthesizer's output for the basic
// constraint combinations.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rt   *schema.RecordType
		want string
	}{
		{
			name: "no fields",
			rt:   &schema.RecordType{Name: "Empty"},
			want: "create table if not exists Empty()",
		},
		{
			name: "simple bean",
			rt:   simpleBean(),
			want: "create table if not exists SimpleBean(id INTEGER primary key autoincrement, active BOOLEAN, str TEXT, date INTEGER)",
		},
		{
			name: "unique not null",
			rt: &schema.RecordType{
				Name:   "Users",
				Fields: []schema.Field{{Name: "email", Type: schema.TypeString, Unique: true, NotNull: true}},
			},
			want: "create table if not exists Users(email TEXT not null, constraint Users_email unique (email))",
		},
		{
			name: "default and not null",
			rt: &schema.RecordType{
				Name: "Account",
				Fields: []schema.Field{
					{Name: "balance", Type: schema.TypeDouble, NotNull: true, Default: "0"},
					{Name: "note", Type: schema.TypeString, Default: "'n/a'"},
				},
			},
			want: "create table if not exists Account(balance REAL not null default 0, note TEXT default 'n/a')",
		},
		{
			name: "table override",
			rt: &schema.RecordType{
				Name:   "User",
				Table:  "users",
				Fields: []schema.Field{{Name: "login", Type: schema.TypeString, Unique: true}},
			},
			want: "create table if not exists users(login TEXT, constraint users_login unique (login))",
		},
		{
			name: "blank override ignored",
			rt:   &schema.RecordType{Name: "User", Table: "   ", Fields: []schema.Field{{Name: "n", Type: schema.TypeLong}}},
			want: "create table if not exists User(n INTEGER)",
		},
		{
			name: "ignored fields",
			rt: &schema.RecordType{
				Name: "Cache",
				Fields: []schema.Field{
					{Name: "scratch", Type: schema.TypeString, Ignore: true, Unique: true},
					{Name: "key", Type: schema.TypeString},
					{Name: "tmp", Type: schema.TypeInt, Ignore: true, PrimaryKey: true},
				},
			},
			want: "create table if not exists Cache(key TEXT)",
		},
		{
			name: "unknown type",
			rt:   &schema.RecordType{Name: "Blob", Fields: []schema.Field{{Name: "data", Type: "bytes"}}},
			want: "create table if not exists Blob(data TEXT)",
		},
		{
			name: "primary key suppresses other clauses",
			rt: &schema.RecordType{
				Name: "K",
				Fields: []schema.Field{
					{Name: "id", Type: schema.TypeLong, PrimaryKey: true, NotNull: true, Unique: true, Default: "1"},
				},
			},
			want: "create table if not exists K(id INTEGER primary key)",
		},
		{
			name: "later primary key wins",
			rt: &schema.RecordType{
				Name: "Pair",
				Fields: []schema.Field{
					{Name: "a", Type: schema.TypeInt, PrimaryKey: true, AutoIncrement: true},
					{Name: "b", Type: schema.TypeString, NotNull: true},
					{Name: "c", Type: schema.TypeLong, PrimaryKey: true},
				},
			},
			want: "create table if not exists Pair(a INTEGER, b TEXT not null, c INTEGER primary key)",
		},
		{
			name: "inherited fields first",
			rt: &schema.RecordType{
				Name: "Child",
				Parent: &schema.RecordType{
					Name:   "Base",
					Fields: []schema.Field{{Name: "id", Type: schema.TypeInt, PrimaryKey: true}},
				},
				Fields: []schema.Field{{Name: "name", Type: schema.TypeString}},
			},
			want: "create table if not exists Child(id INTEGER primary key, name TEXT)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := BuildCreateTableSQL(tt.rt)
			if got.DDL != tt.want {
				t.Fatalf("BuildCreateTableSQL().DDL =\n  %q\nwant\n  %q", got.DDL, tt.want)
			}
		})
	}
}

// TestBuildCreateTableSQLColumns checks the structured column view matches
// the DDL text.
func TestBuildCreateTableSQLColumns(t *testing.T) {
	t.Parallel()

	got := BuildCreateTableSQL(simpleBean())
	if got.Table != "SimpleBean" {
		t.Fatalf("Table = %q, want %q", got.Table, "SimpleBean")
	}

	want := []ColumnDefinition{
		{Name: "id", StorageClass: Integer, Clauses: []string{"primary key", "autoincrement"}, PrimaryKey: true},
		{Name: "active", StorageClass: Boolean},
		{Name: "str", StorageClass: Text},
		{Name: "date", StorageClass: Integer},
	}
	if len(got.Columns) != len(want) {
		t.Fatalf("len(Columns) = %d, want %d", len(got.Columns), len(want))
	}
	for i := range want {
		g, w := got.Columns[i], want[i]
		if g.Name != w.Name || g.StorageClass != w.StorageClass || g.PrimaryKey != w.PrimaryKey {
			t.Fatalf("Columns[%d] = %+v, want %+v", i, g, w)
		}
		if strings.Join(g.Clauses, "|") != strings.Join(w.Clauses, "|") {
			t.Fatalf("Columns[%d].Clauses = %q, want %q", i, g.Clauses, w.Clauses)
		}
	}
}

// TestBuildCreateTableSQLSinglePrimaryKey checks that any number of declared
// keys leaves exactly one clause, on the last declared key column.
func TestBuildCreateTableSQLSinglePrimaryKey(t *testing.T) {
	t.Parallel()

	rt := &schema.RecordType{Name: "Multi"}
	for _, n := range []string{"a", "b", "c", "d"} {
		rt.Fields = append(rt.Fields, schema.Field{Name: n, Type: schema.TypeInt, PrimaryKey: true, AutoIncrement: n == "b"})
	}
	rt.Fields = append(rt.Fields, schema.Field{Name: "e", Type: schema.TypeString, Unique: true})

	got := BuildCreateTableSQL(rt)
	if n := strings.Count(got.DDL, "primary key"); n != 1 {
		t.Fatalf("primary key count = %d in %q, want 1", n, got.DDL)
	}
	if strings.Contains(got.DDL, "autoincrement") {
		t.Fatalf("autoincrement of a replaced key survived: %q", got.DDL)
	}
	if !strings.Contains(got.DDL, "d INTEGER primary key, e TEXT") {
		t.Fatalf("last key column not marked: %q", got.DDL)
	}

	var keys []string
	for _, c := range got.Columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	if strings.Join(keys, ",") != "d" {
		t.Fatalf("primary key columns = %v, want [d]", keys)
	}
}

func TestTableName(t *testing.T) {
	t.Parallel()

	if got := TableName(&schema.RecordType{Name: "A"}); got != "A" {
		t.Fatalf("TableName() = %q, want %q", got, "A")
	}
	if got := TableName(&schema.RecordType{Name: "A", Table: "a_tbl"}); got != "a_tbl" {
		t.Fatalf("TableName() = %q, want %q", got, "a_tbl")
	}
}

// BenchmarkBuildCreateTableSQL measures DDL synthesis for a moderately wide
// type with a parent.
func BenchmarkBuildCreateTableSQL(b *testing.B) {
	base := &schema.RecordType{
		Name:   "Base",
		Fields: []schema.Field{{Name: "id", Type: schema.TypeLong, PrimaryKey: true, AutoIncrement: true}},
	}
	rt := &schema.RecordType{Name: "Wide", Parent: base}
	types := []schema.SemanticType{"string", "int", "long", "double", "bool", "date"}
	for i := 0; i < 24; i++ {
		rt.Fields = append(rt.Fields, schema.Field{
			Name:    "f" + string(rune('a'+i)),
			Type:    types[i%len(types)],
			NotNull: i%2 == 0,
			Unique:  i%5 == 0,
		})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = BuildCreateTableSQL(rt)
	}
}
