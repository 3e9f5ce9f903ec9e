package loader

import (
	"context"
	"time"
)

// copyFn inserts rows aligned to columns and returns the number inserted.
type copyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// copyBatches feeds rows to fn in slices of batchSize and logs progress after
// each flush. batchSize <= 0 sends all rows at once. An empty input still
// makes no call.
func copyBatches(ctx context.Context, columns []string, rows [][]any, batchSize int, fn copyFn, logf func(string, ...any)) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 || batchSize > len(rows) {
		batchSize = len(rows)
	}

	var (
		total   int64
		batches int
		start   = time.Now()
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(rows))
		n, err := fn(ctx, columns, rows[lo:hi])
		total += n
		if err != nil {
			logf("loader: copy failed batch=%d inserted=%d total=%d err=%v", batches+1, n, total, err)
			return total, err
		}
		batches++
		if hi < len(rows) {
			elapsed := time.Since(start)
			rps := float64(0)
			if elapsed > 0 {
				rps = float64(total) / elapsed.Seconds()
			}
			logf("loader: batch #%d inserted=%d total_inserted=%d rps=%.0f", batches, n, total, rps)
		}
	}
	return total, nil
}
