package descriptor

import (
	"fmt"
	"reflect"
)

// StructRecord exposes a struct pointer as a marshal.Record, addressing
// fields by the column names FromStruct derives for them.
type StructRecord struct {
	v     reflect.Value
	index map[string][]int
}

// Bind wraps ptr, which must be a non-nil pointer to a struct.
func Bind(ptr any) (*StructRecord, error) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("descriptor: bind: want non-nil struct pointer, got %T", ptr)
	}
	index := map[string][]int{}
	if err := indexFields(v.Elem().Type(), nil, index); err != nil {
		return nil, err
	}
	return &StructRecord{v: v.Elem(), index: index}, nil
}

func indexFields(t reflect.Type, prefix []int, index map[string][]int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if et, ok := embeddedStruct(sf); ok {
			if err := indexFields(et, path, index); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		f, err := fieldFromStruct(sf)
		if err != nil {
			return fmt.Errorf("descriptor: bind: %s: %w", sf.Name, err)
		}
		if f.Ignore {
			continue
		}
		index[f.Name] = path
	}
	return nil
}

// Get returns the field's value; nil pointers are reported as nil and
// non-nil pointers are dereferenced.
func (s *StructRecord) Get(field string) any {
	idx, ok := s.index[field]
	if !ok {
		return nil
	}
	fv, ok := s.field(idx, false)
	if !ok {
		return nil
	}
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	return fv.Interface()
}

// Set assigns v to the field, converting between compatible kinds and
// allocating pointer fields. Unknown fields and incompatible values are
// ignored.
func (s *StructRecord) Set(field string, v any) {
	idx, ok := s.index[field]
	if !ok || v == nil {
		return
	}
	fv, ok := s.field(idx, true)
	if !ok {
		return
	}
	target := fv.Type()
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}

	val := reflect.ValueOf(v)
	if !assignable(val.Type(), target) {
		return
	}
	val = val.Convert(target)

	if fv.Kind() == reflect.Pointer {
		p := reflect.New(target)
		p.Elem().Set(val)
		fv.Set(p)
		return
	}
	fv.Set(val)
}

// field walks idx from the struct root. A nil embedded pointer ends the walk
// unless alloc is set, in which case it is allocated when settable.
func (s *StructRecord) field(idx []int, alloc bool) (reflect.Value, bool) {
	v := s.v
	for i, x := range idx {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !alloc || !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// assignable rejects the numeric-to-string conversions reflect allows.
func assignable(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return false
	}
	return true
}
