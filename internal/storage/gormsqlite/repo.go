// Package gormsqlite implements storage.Repository on top of gorm with the
// SQLite dialector. The dialector is pointed at the pure-Go modernc driver so
// the backend builds without cgo.
package gormsqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// maxParams is SQLITE_MAX_VARIABLE_NUMBER for SQLite >= 3.32.
const maxParams = 32766

// Config holds the gorm backend configuration.
type Config struct {
	DSN string
	// LogSQL turns on gorm's statement logger.
	LogSQL bool
}

// Repository is a gorm-backed implementation of storage.Repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository opens cfg.DSN through gorm and returns the Repository plus a
// Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("gormsqlite: DSN must not be empty")
	}

	lvl := logger.Silent
	if cfg.LogSQL {
		lvl = logger.Info
	}
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: cfg.DSN}), &gorm.Config{
		Logger: logger.Default.LogMode(lvl),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gormsqlite: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("gormsqlite: underlying db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("gormsqlite: ping: %w", err)
	}

	return &Repository{db: db}, func() { sqlDB.Close() }, nil
}

// Exec runs stmt as is.
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if err := r.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("gormsqlite: exec: %w", err)
	}
	return nil
}

// Insert writes rows inside one gorm transaction using multi-row INSERTs.
func (r *Repository) Insert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("gormsqlite: insert: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("gormsqlite: insert: row %d length %d != columns length %d", i, len(row), len(columns))
		}
	}

	var inserted int64
	perStmt := maxParams / len(columns)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += perStmt {
			end := start + perStmt
			if end > len(rows) {
				end = len(rows)
			}

			stmt := sq.Insert(table).Columns(columns...)
			for _, row := range rows[start:end] {
				stmt = stmt.Values(row...)
			}
			query, args, err := stmt.ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}

			res := tx.Exec(query, args...)
			if res.Error != nil {
				return res.Error
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("gormsqlite: insert: %w", err)
	}
	return inserted, nil
}

// Select reads every row of table in rowid order. SQL NULL is nil.
func (r *Repository) Select(ctx context.Context, table string, columns []string) ([][]any, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("gormsqlite: select: columns must not be empty")
	}

	rows, err := r.db.WithContext(ctx).Table(table).Select(columns).Order("rowid").Rows()
	if err != nil {
		return nil, fmt.Errorf("gormsqlite: select: %w", err)
	}
	defer rows.Close()
	return scanAll(rows, len(columns))
}

// Tables lists user tables, sorted by name.
func (r *Repository) Tables(ctx context.Context) ([]string, error) {
	names, err := r.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("gormsqlite: tables: %w", err)
	}
	out := names[:0]
	for _, n := range names {
		if !strings.HasPrefix(n, "sqlite_") {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

func scanAll(rows *sql.Rows, width int) ([][]any, error) {
	var out [][]any
	for rows.Next() {
		vals := make([]any, width)
		ptrs := make([]any, width)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("gormsqlite: scan: %w", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gormsqlite: rows: %w", err)
	}
	return out, nil
}
