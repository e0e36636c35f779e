package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// InsertFn abstracts a backend's batch insert. It receives rows aligned to
// columns and returns the number of rows reported as inserted.
type InsertFn func(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls insert for each non-empty batch. It returns the total number of rows
// reported by insert and the first error encountered.
//
// Cancellation: returns (total, ctx.Err()) when canceled. When verbose is
// set, a progress line is logged on each successful flush.
func LoadBatches(
	ctx context.Context,
	table string,
	columns []string,
	in <-chan []any,
	batchSize int,
	verbose bool,
	insert InsertFn,
) (total int64, batches int64, err error) {
	if batchSize <= 0 {
		return 0, 0, fmt.Errorf("batchSize must be > 0")
	}
	if insert == nil {
		return 0, 0, fmt.Errorf("insert must not be nil")
	}

	var (
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := insert(ctx, table, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Printf("loader: %s: insert failed after=%d total=%d err=%v", table, n, total, err)
			return err
		}

		batches++
		if verbose {
			now := time.Now()
			log.Printf(
				"%s batch #%d: inserted=%d total_inserted=%d elapsed=%s since_last=%s",
				table,
				batches,
				n,
				total,
				now.Sub(start).Truncate(time.Millisecond),
				now.Sub(lastFlush).Truncate(time.Millisecond),
			)
			lastFlush = now
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, batches, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, batches, err
				}
				return total, batches, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, batches, err
				}
			}
		}
	}
}
