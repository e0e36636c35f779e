package descriptor

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"schemagen/internal/schema"
)

// Validate checks that rt can be mapped to a table: it must be a struct, its
// name must be exported, it must not be abstract and every field in its chain
// needs a unique, non-empty name.
func Validate(rt *schema.RecordType) error {
	if rt == nil {
		return newProcessingError("", "record type must not be nil")
	}
	if rt.Kind != "" && rt.Kind != "struct" {
		return newProcessingError(rt.Name, "Only structs can be described as record types, got %s", rt.Kind)
	}
	if !exported(rt.Name) {
		return newProcessingError(rt.Name, "The type %s is not exported.", rt.Name)
	}
	if rt.Abstract {
		return newProcessingError(rt.Name, "The type %s is abstract. Abstract types cannot be mapped to tables", rt.Name)
	}

	seen := map[string]bool{}
	for i, f := range schema.CollectFields(rt) {
		if f.Name == "" {
			return newProcessingError(rt.Name, "field %d has no name", i)
		}
		if f.Ignore {
			continue
		}
		if seen[f.Name] {
			return newProcessingError(rt.Name+"."+f.Name, "duplicate column %s", f.Name)
		}
		seen[f.Name] = true
		if f.AutoIncrement && !f.PrimaryKey {
			return newProcessingError(rt.Name+"."+f.Name, "auto_increment requires primary_key")
		}
	}
	return nil
}

// Concrete returns the non-abstract types of cat, in document order, that
// pass Validate. Failures are returned alongside as *ProcessingError values.
func Concrete(cat *Catalog) ([]*schema.RecordType, []error) {
	var (
		out  []*schema.RecordType
		errs []error
	)
	for _, rt := range cat.Types {
		if rt.Abstract {
			continue
		}
		if err := Validate(rt); err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, rt)
	}
	return out, errs
}

// AsProcessingError unwraps err into a *ProcessingError if it carries one.
func AsProcessingError(err error) (*ProcessingError, bool) {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func exported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
