// Package schema holds the record-type model consumed by the DDL synthesizer
// and the marshalling rule builder.
//
// Values in this package are plain data: they are built once per generation
// run by a host collaborator (see internal/descriptor) and never mutated
// afterwards, so they can be shared freely between goroutines.
package schema

import "strings"

// SemanticType is the loosely-specified type tag attached to a field, e.g.
// "string", "int", "long", "double", "bool", "date". Tags are matched
// case-insensitively; see Canonical.
type SemanticType string

// Canonical semantic types. Every alias accepted by Canonical resolves to one
// of these.
const (
	TypeString SemanticType = "string"
	TypeInt    SemanticType = "int"
	TypeLong   SemanticType = "long"
	TypeFloat  SemanticType = "float"
	TypeDouble SemanticType = "double"
	TypeBool   SemanticType = "bool"
	TypeDate   SemanticType = "date"
)

// Canonical resolves t to one of the Type* constants. Unknown tags are
// returned lower-cased and trimmed; callers treat them as text.
func (t SemanticType) Canonical() SemanticType {
	k := SemanticType(strings.ToLower(strings.TrimSpace(string(t))))
	switch k {
	case "string", "text":
		return TypeString
	case "int", "integer", "int32":
		return TypeInt
	case "long", "int64", "bigint":
		return TypeLong
	case "float", "float32":
		return TypeFloat
	case "double", "float64", "real":
		return TypeDouble
	case "bool", "boolean":
		return TypeBool
	case "date", "time", "timestamp", "datetime":
		return TypeDate
	default:
		return k
	}
}

// Known reports whether t resolves to one of the canonical types.
func (t SemanticType) Known() bool {
	switch t.Canonical() {
	case TypeString, TypeInt, TypeLong, TypeFloat, TypeDouble, TypeBool, TypeDate:
		return true
	}
	return false
}

// Field describes one declared field of a record type together with its
// storage constraints.
//
// NotNull is the inverse of the declarative "nullable" flag so that the zero
// Field is nullable, like an unannotated field.
type Field struct {
	Name string
	Type SemanticType

	NotNull bool
	Unique  bool
	// Default is emitted verbatim as SQL; empty means no default.
	Default string
	Ignore  bool

	PrimaryKey    bool
	AutoIncrement bool
}

// Nullable reports whether the column accepts NULL.
func (f Field) Nullable() bool { return !f.NotNull }

// RecordType describes a record type and, through Parent, its ancestors.
// A nil Parent is the root of the chain.
type RecordType struct {
	Name string
	// Table overrides the table name when non-blank.
	Table  string
	Fields []Field
	Parent *RecordType

	// Kind and Abstract are host-side metadata checked before generation.
	// An empty Kind means "struct".
	Kind     string
	Abstract bool
}
