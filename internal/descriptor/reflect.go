package descriptor

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"schemagen/internal/schema"
)

// TagName is the struct tag read by FromStruct.
//
//	type User struct {
//		Entity
//		Email  string    `sqlite:"email,notnull,unique"`
//		Active bool      `sqlite:",default=1"`
//		Cache  []byte    `sqlite:"-"`
//	}
//
// The first element renames the column (empty keeps the lower-camel Go
// name); "-" ignores the field. Options: pk, autoincrement, notnull, unique,
// default=<sql>, type=<semantic type>.
const TagName = "sqlite"

// Tabler lets a struct override its table name.
type Tabler interface {
	TableName() string
}

var timeType = reflect.TypeOf(time.Time{})

// FromStruct builds a RecordType from a struct value or pointer. The first
// embedded struct becomes the parent; further embedded structs are not
// supported. Unexported fields are skipped.
func FromStruct(v any) (*schema.RecordType, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, newProcessingError("", "Only structs can be described as record types, got nil")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, newProcessingError(t.String(), "Only structs can be described as record types, got %s", t.Kind())
	}

	rt, err := fromType(t, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	if tb, ok := v.(Tabler); ok {
		rt.Table = tb.TableName()
	} else if tb, ok := reflect.New(t).Interface().(Tabler); ok {
		rt.Table = tb.TableName()
	}
	return rt, nil
}

func fromType(t reflect.Type, visiting map[reflect.Type]bool) (*schema.RecordType, error) {
	if visiting[t] {
		return nil, newProcessingError(t.Name(), "inheritance cycle through %s", t.Name())
	}
	visiting[t] = true
	defer delete(visiting, t)

	rt := &schema.RecordType{Name: normalize(t.Name()), Kind: "struct"}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)

		if et, ok := embeddedStruct(sf); ok {
			if rt.Parent != nil {
				return nil, newProcessingError(rt.Name, "only one embedded struct is supported, found %s and %s", rt.Parent.Name, et.Name())
			}
			parent, err := fromType(et, visiting)
			if err != nil {
				return nil, err
			}
			rt.Parent = parent
			continue
		}
		if !sf.IsExported() {
			continue
		}

		f, err := fieldFromStruct(sf)
		if err != nil {
			return nil, newProcessingError(rt.Name+"."+sf.Name, "%v", err)
		}
		rt.Fields = append(rt.Fields, f)
	}
	return rt, nil
}

// embeddedStruct reports the struct type of an embedded struct or struct
// pointer field. Embedded time.Time is an ordinary column.
func embeddedStruct(sf reflect.StructField) (reflect.Type, bool) {
	if !sf.Anonymous {
		return nil, false
	}
	t := sf.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType {
		return nil, false
	}
	return t, true
}

func fieldFromStruct(sf reflect.StructField) (schema.Field, error) {
	f := schema.Field{Name: lowerFirst(sf.Name), Type: semanticOf(sf.Type)}

	tag, ok := sf.Tag.Lookup(TagName)
	if !ok {
		return f, nil
	}
	if tag == "-" {
		f.Ignore = true
		return f, nil
	}

	parts := strings.Split(tag, ",")
	if name := strings.TrimSpace(parts[0]); name != "" {
		f.Name = normalize(name)
	}
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "":
		case "pk":
			f.PrimaryKey = true
		case "autoincrement":
			f.AutoIncrement = true
		case "notnull":
			f.NotNull = true
		case "unique":
			f.Unique = true
		case "ignore":
			f.Ignore = true
		case "default":
			f.Default = val
		case "type":
			f.Type = schema.SemanticType(val)
		default:
			return f, fmt.Errorf("unknown %s tag option %q", TagName, key)
		}
	}
	return f, nil
}

// semanticOf maps a Go type to its semantic type tag. Pointers map like their
// element type; anything unrecognised becomes "string".
func semanticOf(t reflect.Type) schema.SemanticType {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return schema.TypeDate
	}
	switch t.Kind() {
	case reflect.Bool:
		return schema.TypeBool
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int, reflect.Uint8, reflect.Uint16:
		return schema.TypeInt
	case reflect.Int64, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return schema.TypeLong
	case reflect.Float32:
		return schema.TypeFloat
	case reflect.Float64:
		return schema.TypeDouble
	default:
		return schema.TypeString
	}
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
