// Package marshal derives, per column, the conversion between a native field
// value and the primitive stored in SQLite.
//
// A Rule's Read converts a native value into the primitive to persist; its
// Write converts a primitive read back from a row into the native value. A
// NULL primitive never produces a value: Write reports ok=false and the
// caller leaves the destination untouched.
package marshal

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cast"

	"schemagen/internal/schema"
)

// ReaderKind names the column reader used on write-back.
type ReaderKind string

const (
	IntReader    ReaderKind = "int"
	StringReader ReaderKind = "string"
	LongReader   ReaderKind = "long"
	DoubleReader ReaderKind = "double"
	FloatReader  ReaderKind = "float"
)

// Rule is the marshalling rule for one column.
type Rule struct {
	Field string `json:"field"`
	// Column is the zero-based ordinal of the column in the table.
	Column int                 `json:"column"`
	Type   schema.SemanticType `json:"type"`

	// Accessor and Setter are the conventional method names used by emitted
	// code, e.g. "getStr"/"setStr" or "isActive"/"setActive".
	Accessor string     `json:"accessor"`
	Setter   string     `json:"setter"`
	Reader   ReaderKind `json:"reader"`

	// SkipNull is always true: a NULL column leaves the field as it was.
	SkipNull bool `json:"skip_null"`
}

// BuildRules returns one Rule per non-ignored field of rt, in the column order
// used by the DDL synthesizer.
func BuildRules(rt *schema.RecordType) []Rule {
	fields := schema.Columns(rt)
	rules := make([]Rule, 0, len(fields))
	for i, f := range fields {
		kind := f.Type.Canonical()
		rules = append(rules, Rule{
			Field:    f.Name,
			Column:   i,
			Type:     kind,
			Accessor: accessorName(f.Name, kind),
			Setter:   "set" + Capitalize(f.Name),
			Reader:   readerFor(kind),
			SkipNull: true,
		})
	}
	return rules
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func accessorName(field string, kind schema.SemanticType) string {
	if kind == schema.TypeBool {
		if strings.HasPrefix(field, "is") {
			return field
		}
		return "is" + Capitalize(field)
	}
	return "get" + Capitalize(field)
}

func readerFor(kind schema.SemanticType) ReaderKind {
	switch kind {
	case schema.TypeInt, schema.TypeBool:
		return IntReader
	case schema.TypeLong, schema.TypeDate:
		return LongReader
	case schema.TypeDouble:
		return DoubleReader
	case schema.TypeFloat:
		return FloatReader
	default:
		return StringReader
	}
}

// Read converts a native value into the primitive to persist. Dates become
// epoch milliseconds; a nil date (or nil *time.Time) stays nil. Every other
// value passes through unchanged.
func (r Rule) Read(v any) any {
	if r.Type != schema.TypeDate {
		return v
	}
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli()
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UnixMilli()
	default:
		return v
	}
}

// Write converts a stored primitive back into the native value. ok is false
// when p is NULL; the caller must then skip the assignment.
func (r Rule) Write(p any) (v any, ok bool, err error) {
	if p == nil {
		return nil, false, nil
	}

	switch r.Reader {
	case IntReader:
		n, err := cast.ToIntE(p)
		if err != nil {
			return nil, false, r.readErr(err)
		}
		if r.Type == schema.TypeBool {
			return n == 1, true, nil
		}
		return n, true, nil

	case LongReader:
		n, err := cast.ToInt64E(p)
		if err != nil {
			return nil, false, r.readErr(err)
		}
		if r.Type == schema.TypeDate {
			return time.UnixMilli(n), true, nil
		}
		return n, true, nil

	case DoubleReader:
		f, err := cast.ToFloat64E(p)
		if err != nil {
			return nil, false, r.readErr(err)
		}
		return f, true, nil

	case FloatReader:
		f, err := cast.ToFloat32E(p)
		if err != nil {
			return nil, false, r.readErr(err)
		}
		return f, true, nil

	default:
		s, err := cast.ToStringE(p)
		if err != nil {
			return nil, false, r.readErr(err)
		}
		return s, true, nil
	}
}

func (r Rule) readErr(err error) error {
	return fmt.Errorf("marshal: column %d (%s) %s reader: %w", r.Column, r.Field, r.Reader, err)
}
