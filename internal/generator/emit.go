package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strconv"
	"text/template"
	"unicode"
	"unicode/utf8"

	"schemagen/internal/marshal"
	"schemagen/internal/schema"
)

// Header marks every emitted file.
const Header = "Code generated by schemagen. DO NOT EDIT."

// Emit renders the Go helper for res into package pkg. The helper type is
// named <Type>Helper and provides:
//
//	TableName() string
//	Schema() string
//	Columns() []string
//	ToValues(data *T) map[string]any
//	FromRow(row []any) (*T, error)
//
// ToValues reads each column through the type's accessors (GetX, or IsX for
// booleans); dates are *time.Time and become epoch milliseconds, nil stays
// nil. FromRow skips NULL columns and assigns the rest through SetX.
func Emit(pkg string, res Result) ([]byte, error) {
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("generator: emit: invalid package name %q", pkg)
	}
	if res.Type == nil {
		return nil, fmt.Errorf("generator: emit: result has no record type")
	}
	name := res.Type.Name
	if !token.IsIdentifier(name) {
		return nil, fmt.Errorf("generator: emit: %q is not a Go identifier", name)
	}

	data := helperData{
		Header:      Header,
		Fingerprint: Fingerprint(res.Schema.DDL),
		Package:     pkg,
		Type:        name,
		Helper:      name + "Helper",
		SchemaConst: lowerFirst(name) + "Schema",
		Table:       res.Schema.Table,
		DDL:         res.Schema.DDL,
	}
	for _, r := range res.Rules {
		c := column{
			Name:     r.Field,
			Index:    r.Column,
			Accessor: marshal.Capitalize(r.Accessor),
			Setter:   marshal.Capitalize(r.Setter),
			Cast:     castFuncs[r.Reader],
		}
		switch r.Type {
		case schema.TypeDate:
			c.Date = true
			data.NeedTime = true
		case schema.TypeBool:
			c.Bool = true
		}
		data.Columns = append(data.Columns, c)
	}

	var buf bytes.Buffer
	if err := helperTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("generator: emit %s: %w", name, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generator: emit %s: gofmt: %w", name, err)
	}
	return src, nil
}

// EmitDDL renders the DDL of results as a SQL script, one statement per line.
func EmitDDL(results ...Result) []byte {
	var buf bytes.Buffer
	buf.WriteString("-- " + Header + "\n")
	for _, r := range results {
		fmt.Fprintf(&buf, "\n-- %s %s\n%s;\n", r.Schema.Table, Fingerprint(r.Schema.DDL), r.Schema.DDL)
	}
	return buf.Bytes()
}

var castFuncs = map[marshal.ReaderKind]string{
	marshal.IntReader:    "ToIntE",
	marshal.LongReader:   "ToInt64E",
	marshal.DoubleReader: "ToFloat64E",
	marshal.FloatReader:  "ToFloat32E",
	marshal.StringReader: "ToStringE",
}

type helperData struct {
	Header      string
	Fingerprint string
	Package     string
	Type        string
	Helper      string
	SchemaConst string
	Table       string
	DDL         string
	NeedTime    bool
	Columns     []column
}

type column struct {
	Name     string
	Index    int
	Accessor string
	Setter   string
	Cast     string
	Date     bool
	Bool     bool
}

var helperTmpl = template.Must(template.New("helper").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`// {{.Header}}
// ddl: {{.Fingerprint}}

package {{.Package}}

import (
	"fmt"
{{- if .NeedTime}}
	"time"
{{- end}}
{{- if .Columns}}

	"github.com/spf13/cast"
{{- end}}
)

const {{.SchemaConst}} = {{quote .DDL}}

// {{.Helper}} maps {{.Type}} values to and from rows of table {{.Table}}.
type {{.Helper}} struct{}

// TableName returns the table {{.Type}} is stored in.
func ({{.Helper}}) TableName() string { return {{quote .Table}} }

// Schema returns the CREATE TABLE statement for {{.Type}}.
func ({{.Helper}}) Schema() string { return {{.SchemaConst}} }

// Columns returns the column names in row order.
func ({{.Helper}}) Columns() []string {
	return []string{ {{- range $i, $c := .Columns}}{{if $i}}, {{end}}{{quote $c.Name}}{{end -}} }
}

// ToValues returns the column values of data keyed by column name.
func ({{.Helper}}) ToValues(data *{{.Type}}) map[string]any {
	values := make(map[string]any, {{len .Columns}})
{{- range .Columns}}
{{- if .Date}}
	if v := data.{{.Accessor}}(); v != nil {
		values[{{quote .Name}}] = v.UnixMilli()
	} else {
		values[{{quote .Name}}] = nil
	}
{{- else}}
	values[{{quote .Name}}] = data.{{.Accessor}}()
{{- end}}
{{- end}}
	return values
}

// FromRow builds a {{.Type}} from a row laid out as Columns. NULL columns are
// skipped and keep their zero value.
func ({{.Helper}}) FromRow(row []any) (*{{.Type}}, error) {
	if len(row) != {{len .Columns}} {
		return nil, fmt.Errorf("{{.Type}}: row has %d columns, want {{len .Columns}}", len(row))
	}
	bean := new({{.Type}})
{{- range .Columns}}
	if row[{{.Index}}] != nil {
		v, err := cast.{{.Cast}}(row[{{.Index}}])
		if err != nil {
			return nil, fmt.Errorf("{{$.Type}}.{{.Name}}: %w", err)
		}
{{- if .Date}}
		t := time.UnixMilli(v)
		bean.{{.Setter}}(&t)
{{- else if .Bool}}
		bean.{{.Setter}}(v == 1)
{{- else}}
		bean.{{.Setter}}(v)
{{- end}}
	}
{{- end}}
	return bean, nil
}
`))

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
