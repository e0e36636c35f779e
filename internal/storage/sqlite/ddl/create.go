package ddl

import (
	"strings"

	"schemagen/internal/schema"
)

const pkClause = " primary key"

// ColumnDefinition is one rendered column: its name, storage class and the
// constraint clauses that follow the type in the DDL.
type ColumnDefinition struct {
	Name         string       `json:"name"`
	StorageClass StorageClass `json:"storage_class"`
	Clauses      []string     `json:"clauses,omitempty"`
	PrimaryKey   bool         `json:"primary_key,omitempty"`
}

// TableSchema is the result of BuildCreateTableSQL.
type TableSchema struct {
	Table   string             `json:"table"`
	Columns []ColumnDefinition `json:"columns"`
	DDL     string             `json:"ddl"`
}

// TableName returns rt.Table when it is non-blank, otherwise the record type
// name.
func TableName(rt *schema.RecordType) string {
	if strings.TrimSpace(rt.Table) == "" {
		return rt.Name
	}
	return rt.Table
}

// BuildCreateTableSQL renders the CREATE TABLE statement for rt. The
// statement has the form:
//
//	create table if not exists <table>(<col> <TYPE> [constraints], ...)
//
// Columns follow schema.Columns order. A primary-key column gets only
// " primary key" [" autoincrement"]; any other column gets " not null",
// " default <v>" and a table-level "constraint <table>_<col> unique (<col>)"
// clause right after it, as declared.
//
// When several fields are primary keys the last one wins: the earlier
// " primary key..." text is cut up to the next comma, leaving the earlier
// column's name and type in place.
func BuildCreateTableSQL(rt *schema.RecordType) TableSchema {
	table := TableName(rt)
	fields := schema.Columns(rt)

	var ddl []byte
	ddl = append(ddl, "create table if not exists "...)
	ddl = append(ddl, table...)
	ddl = append(ddl, '(')

	cols := make([]ColumnDefinition, 0, len(fields))
	for i, f := range fields {
		if i > 0 {
			ddl = append(ddl, ", "...)
		}

		col := ColumnDefinition{Name: f.Name, StorageClass: MapType(f.Type)}
		ddl = append(ddl, f.Name...)
		ddl = append(ddl, ' ')
		ddl = append(ddl, col.StorageClass...)

		if f.PrimaryKey {
			var removed bool
			ddl, removed = dropPrimaryKey(ddl)
			if removed {
				for j := range cols {
					if cols[j].PrimaryKey {
						cols[j].PrimaryKey = false
						cols[j].Clauses = nil
					}
				}
			}

			col.PrimaryKey = true
			col.Clauses = append(col.Clauses, "primary key")
			ddl = append(ddl, pkClause...)
			if f.AutoIncrement {
				col.Clauses = append(col.Clauses, "autoincrement")
				ddl = append(ddl, " autoincrement"...)
			}
			cols = append(cols, col)
			continue
		}

		if !f.Nullable() {
			col.Clauses = append(col.Clauses, "not null")
			ddl = append(ddl, " not null"...)
		}
		if f.Default != "" {
			col.Clauses = append(col.Clauses, "default "+f.Default)
			ddl = append(ddl, " default "...)
			ddl = append(ddl, f.Default...)
		}
		if f.Unique {
			u := uniqueClause(table, f.Name)
			col.Clauses = append(col.Clauses, u)
			ddl = append(ddl, ", "...)
			ddl = append(ddl, u...)
		}
		cols = append(cols, col)
	}

	ddl = append(ddl, ')')
	return TableSchema{Table: table, Columns: cols, DDL: string(ddl)}
}

// dropPrimaryKey deletes an existing " primary key" clause from ddl, up to but
// not including the comma that follows it.
func dropPrimaryKey(ddl []byte) ([]byte, bool) {
	start := strings.Index(string(ddl), pkClause)
	if start <= 0 {
		return ddl, false
	}
	end := strings.IndexByte(string(ddl[start:]), ',')
	if end < 0 {
		return ddl, false
	}
	return append(ddl[:start], ddl[start+end:]...), true
}

// uniqueClause renders a named table-level unique constraint.
func uniqueClause(table, column string) string {
	return "constraint " + table + "_" + column + " unique (" + column + ")"
}
