package ddl

import (
	"context"
	"fmt"

	"schemagen/internal/schema"
)

// Execer runs a single statement. storage.Repository and both SQLite
// repositories satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// EnsureTable creates the table for rt if it does not exist. The generated
// statement carries "if not exists", so repeated calls are harmless.
func EnsureTable(ctx context.Context, repo Execer, rt *schema.RecordType) (TableSchema, error) {
	ts := BuildCreateTableSQL(rt)
	if err := repo.Exec(ctx, ts.DDL); err != nil {
		return ts, fmt.Errorf("ensure table %s: %w", ts.Table, err)
	}
	return ts, nil
}
