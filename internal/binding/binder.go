// Package binding moves records between native values and a storage
// backend. A Binder owns one record type: its generated table schema and its
// marshalling rules.
package binding

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"

	"schemagen/internal/descriptor"
	"schemagen/internal/marshal"
	"schemagen/internal/metrics"
	"schemagen/internal/schema"
	"schemagen/internal/storage"
	"schemagen/internal/storage/sqlite/ddl"
)

// Binder saves and loads records of a single record type.
type Binder struct {
	// Job labels the metrics recorded by the binder.
	Job string
	// Verbose enables per-batch progress logging in SaveStream.
	Verbose bool

	repo   storage.Repository
	rt     *schema.RecordType
	schema ddl.TableSchema
	rules  []marshal.Rule
	cols   []string

	// generated holds the ordinals of autoincrement primary key columns.
	generated []int
}

// New validates rt and prepares its schema and rules.
func New(repo storage.Repository, rt *schema.RecordType) (*Binder, error) {
	if repo == nil {
		return nil, fmt.Errorf("binding: repository must not be nil")
	}
	if err := descriptor.Validate(rt); err != nil {
		return nil, err
	}
	rules := marshal.BuildRules(rt)
	var generated []int
	for i, f := range schema.Columns(rt) {
		if f.PrimaryKey && f.AutoIncrement {
			generated = append(generated, i)
		}
	}
	return &Binder{
		Job:       "schemagen",
		repo:      repo,
		rt:        rt,
		schema:    ddl.BuildCreateTableSQL(rt),
		rules:     rules,
		cols:      marshal.Columns(rules),
		generated: generated,
	}, nil
}

// row marshals rec. A zero autoincrement key is sent as NULL so SQLite
// assigns the next rowid.
func (b *Binder) row(rec marshal.Record) []any {
	row := marshal.Marshal(b.rules, rec)
	for _, i := range b.generated {
		if v := row[i]; v != nil && reflect.ValueOf(v).IsZero() {
			row[i] = nil
		}
	}
	return row
}

// Table returns the table the binder reads and writes.
func (b *Binder) Table() string { return b.schema.Table }

// Schema returns the generated table schema.
func (b *Binder) Schema() ddl.TableSchema { return b.schema }

// Rules returns the marshalling rules in column order.
func (b *Binder) Rules() []marshal.Rule { return b.rules }

// EnsureTable creates the table if it does not exist.
func (b *Binder) EnsureTable(ctx context.Context) error {
	start := time.Now()
	err := storage.EnsureTables(ctx, b.repo, b.schema.DDL)
	metrics.RecordStep(b.Job, "apply", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("binding: %s: %w", b.schema.Table, err)
	}
	return nil
}

// Save marshals recs and inserts them as one batch. It returns the number of
// rows inserted. Keys assigned by the database are not written back to recs;
// Load returns them.
func (b *Binder) Save(ctx context.Context, recs ...marshal.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	rows := make([][]any, len(recs))
	for i, rec := range recs {
		rows[i] = b.row(rec)
	}
	n, err := b.repo.Insert(ctx, b.schema.Table, b.cols, rows)
	if err != nil {
		return n, fmt.Errorf("binding: save %s: %w", b.schema.Table, err)
	}
	metrics.RecordCount(b.Job, "rows_saved", n)
	metrics.RecordBatches(b.Job, 1)
	return n, nil
}

// SaveStream drains in, inserting batches of batchSize rows until in is
// closed or ctx is canceled.
func (b *Binder) SaveStream(ctx context.Context, in <-chan marshal.Record, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("binding: batchSize must be > 0")
	}
	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []any, batchSize)

	g.Go(func() error {
		defer close(rows)
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case rec, ok := <-in:
				if !ok {
					return nil
				}
				select {
				case rows <- b.row(rec):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
	})

	var total, batches int64
	g.Go(func() error {
		var err error
		total, batches, err = storage.LoadBatches(gctx, b.schema.Table, b.cols, rows, batchSize, b.Verbose, b.repo.Insert)
		return err
	})

	err := g.Wait()
	metrics.RecordCount(b.Job, "rows_saved", total)
	metrics.RecordBatches(b.Job, batches)
	if err != nil {
		return total, fmt.Errorf("binding: stream %s: %w", b.schema.Table, err)
	}
	return total, nil
}

// Load reads every row of the table. newFn supplies the destination for each
// row; NULL columns leave the destination's value untouched.
func (b *Binder) Load(ctx context.Context, newFn func() marshal.Record) ([]marshal.Record, error) {
	rows, err := b.repo.Select(ctx, b.schema.Table, b.cols)
	if err != nil {
		return nil, fmt.Errorf("binding: load %s: %w", b.schema.Table, err)
	}
	out := make([]marshal.Record, 0, len(rows))
	for i, row := range rows {
		rec := newFn()
		if _, err := marshal.Unmarshal(b.rules, row, rec); err != nil {
			return out, fmt.Errorf("binding: load %s: row %d: %w", b.schema.Table, i, err)
		}
		out = append(out, rec)
	}
	metrics.RecordCount(b.Job, "rows_loaded", int64(len(out)))
	return out, nil
}
