package marshal

import "fmt"

// Record is a native value addressable by field name. Values is the built-in
// map implementation; callers may adapt their own types.
type Record interface {
	Get(field string) any
	Set(field string, v any)
}

// Values is a Record backed by a map keyed by field name.
type Values map[string]any

func (v Values) Get(field string) any { return v[field] }

func (v Values) Set(field string, val any) { v[field] = val }

// Columns returns the column names in ordinal order.
func Columns(rules []Rule) []string {
	out := make([]string, len(rules))
	for _, r := range rules {
		out[r.Column] = r.Field
	}
	return out
}

// Marshal applies every Read rule to rec and returns the primitive row,
// aligned to the rules' column ordinals.
func Marshal(rules []Rule, rec Record) []any {
	row := make([]any, len(rules))
	for _, r := range rules {
		row[r.Column] = r.Read(rec.Get(r.Field))
	}
	return row
}

// Unmarshal applies every Write rule to row and assigns the results to dst.
// NULL columns are skipped so dst keeps its previous value for them. It
// returns the number of fields assigned.
func Unmarshal(rules []Rule, row []any, dst Record) (int, error) {
	if len(row) != len(rules) {
		return 0, fmt.Errorf("marshal: row has %d columns, want %d", len(row), len(rules))
	}
	n := 0
	for _, r := range rules {
		v, ok, err := r.Write(row[r.Column])
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		dst.Set(r.Field, v)
		n++
	}
	return n, nil
}
