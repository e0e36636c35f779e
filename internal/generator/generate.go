// Package generator runs the DDL synthesizer and the marshalling rule builder
// for record types and renders their output as Go helper sources and SQL
// files.
package generator

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"schemagen/internal/marshal"
	"schemagen/internal/schema"
	"schemagen/internal/storage/sqlite/ddl"
)

// Result is everything generated for one record type.
type Result struct {
	Type   *schema.RecordType `json:"-"`
	Schema ddl.TableSchema    `json:"schema"`
	Rules  []marshal.Rule     `json:"rules"`
}

// Generate builds the table schema and the marshalling rules for rt. Both
// are derived from the same collected column list, so rule ordinals match
// the DDL column order.
func Generate(rt *schema.RecordType) Result {
	return Result{
		Type:   rt,
		Schema: ddl.BuildCreateTableSQL(rt),
		Rules:  marshal.BuildRules(rt),
	}
}

// GenerateAll runs Generate for each type on up to workers goroutines and
// returns the results in input order.
func GenerateAll(ctx context.Context, types []*schema.RecordType, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = 1
	}
	out := make([]Result, len(types))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rt := range types {
		i, rt := i, rt
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = Generate(rt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	return out, nil
}

// Fingerprint returns a stable hash of a DDL statement, used to tell whether a
// generated file is current.
func Fingerprint(ddlText string) string {
	return fmt.Sprintf("xxh3:%016x", xxh3.HashString(ddlText))
}

// FileName returns the snake_case helper file name for rt, e.g.
// "simple_bean_helper.go".
func FileName(rt *schema.RecordType) string {
	return snake(rt.Name) + "_helper.go"
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
