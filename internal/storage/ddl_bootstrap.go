package storage

import (
	"context"
	"fmt"
	"strings"
)

// EnsureTables executes each CREATE TABLE statement against repo in order and
// stops at the first failure. Blank statements are skipped.
//
// The statements produced by the DDL synthesizer carry "if not exists", so
// running the same set twice is a no-op.
func EnsureTables(ctx context.Context, repo Repository, stmts ...string) error {
	for i, stmt := range stmts {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure tables: statement %d: %w", i, err)
		}
	}
	return nil
}
