// Package ddl contains SQLite-specific helpers for generating DDL from a
// schema.RecordType.
//
// It maps semantic field types into the four storage classes used by the
// generated tables and renders the CREATE TABLE statement.
package ddl

import "schemagen/internal/schema"

// StorageClass is the primitive column type used by the store.
type StorageClass string

const (
	Text    StorageClass = "TEXT"
	Integer StorageClass = "INTEGER"
	Real    StorageClass = "REAL"
	Boolean StorageClass = "BOOLEAN"
)

// MapType maps a semantic type tag (e.g., "int", "boolean", "date") into a
// storage class:
//   - string/text          -> TEXT
//   - 32/64-bit integers   -> INTEGER
//   - date/timestamp       -> INTEGER (epoch milliseconds)
//   - 32/64-bit floats     -> REAL
//   - boolean              -> BOOLEAN
//   - others               -> TEXT
func MapType(kind schema.SemanticType) StorageClass {
	switch kind.Canonical() {
	case schema.TypeInt, schema.TypeLong:
		return Integer
	case schema.TypeDate:
		return Integer // epoch millis
	case schema.TypeFloat, schema.TypeDouble:
		return Real
	case schema.TypeBool:
		return Boolean
	default:
		return Text
	}
}
