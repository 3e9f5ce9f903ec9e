// Package loader replaces the contents of a destination table with a coerced
// table.
//
// A load runs in two transactions. The first clears the table: it tries a
// non-blocking exclusive lock followed by TRUNCATE and, if that attempt fails
// for any reason, rolls it back and deletes every row in a fresh transaction
// instead. The second transaction bulk loads the rows. Readers therefore see
// the table empty between the two commits, and a failed load leaves it empty.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sheetsync/internal/config"
	"sheetsync/internal/reconcile"
	"sheetsync/internal/storage"
)

// Mode records how the table was cleared.
type Mode string

const (
	ModeFullLock       Mode = "full-lock"
	ModeDeleteFallback Mode = "delete-fallback"
)

// Outcome describes a successful load.
type Outcome struct {
	Mode        Mode
	RowsLoaded  int64
	RowsCleared int64 // -1 when the table was truncated
}

// ClearError means neither the exclusive clear nor the delete fallback
// succeeded. The table is unchanged.
type ClearError struct {
	Table     config.TableID
	Exclusive error // why the exclusive attempt was abandoned
	Err       error // why the delete fallback failed
}

func (e *ClearError) Error() string {
	return fmt.Sprintf("clear %s: exclusive attempt: %v; delete fallback: %v", e.Table, e.Exclusive, e.Err)
}

func (e *ClearError) Unwrap() error { return e.Err }

// LoadTransactionError means the clear committed but the bulk insert did not.
type LoadTransactionError struct {
	Table config.TableID
	Mode  Mode
	Err   error
}

func (e *LoadTransactionError) Error() string {
	return fmt.Sprintf("load %s after %s clear: %v (the table was already cleared and is now empty)", e.Table, e.Mode, e.Err)
}

func (e *LoadTransactionError) Unwrap() error { return e.Err }

// ShapeError reports a row whose width does not match the load plan.
type ShapeError struct {
	Row  int
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("row %d has %d values, want %d", e.Row, e.Got, e.Want)
}

// Option configures a Loader.
type Option func(*Loader)

// WithBatchSize splits the bulk insert into CopyIn calls of at most n rows,
// all inside the same transaction. n <= 0 sends everything in one call.
func WithBatchSize(n int) Option { return func(l *Loader) { l.batchSize = n } }

// WithLogf replaces log.Printf.
func WithLogf(f func(format string, args ...any)) Option { return func(l *Loader) { l.logf = f } }

// WithNow replaces time.Now for tests.
func WithNow(now func() time.Time) Option { return func(l *Loader) { l.now = now } }

// Loader performs replacement loads against one store.
type Loader struct {
	store     storage.Store
	batchSize int
	logf      func(format string, args ...any)
	now       func() time.Time
}

// New returns a Loader for store.
func New(store storage.Store, opts ...Option) *Loader {
	l := &Loader{store: store, logf: log.Printf, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load replaces the contents of t with rows. Each row must hold len(plan)
// values in plan order; the shape is checked before the table is touched.
func (l *Loader) Load(ctx context.Context, t config.TableID, plan reconcile.LoadPlan, rows [][]any) (Outcome, error) {
	if len(plan) == 0 {
		return Outcome{}, errors.New("loader: empty load plan")
	}
	for i, r := range rows {
		if len(r) != len(plan) {
			return Outcome{}, &ShapeError{Row: i, Got: len(r), Want: len(plan)}
		}
	}

	start := l.now()
	out, err := l.clear(ctx, t)
	if err != nil {
		return Outcome{}, err
	}

	n, err := l.insert(ctx, t, plan.Names(), rows)
	if err != nil {
		l.logf("loader: insert failed table=%s mode=%s err=%v", t, out.Mode, err)
		return out, &LoadTransactionError{Table: t, Mode: out.Mode, Err: err}
	}
	out.RowsLoaded = n
	l.logf("loader: done table=%s mode=%s cleared=%d loaded=%d elapsed=%s",
		t, out.Mode, out.RowsCleared, out.RowsLoaded, l.now().Sub(start).Truncate(time.Millisecond))
	return out, nil
}

func (l *Loader) clear(ctx context.Context, t config.TableID) (Outcome, error) {
	att := l.tryExclusive(ctx, t)
	if att.locked() {
		return Outcome{Mode: ModeFullLock, RowsCleared: -1}, nil
	}
	l.logf("loader: exclusive clear unavailable table=%s lock_held=%t reason=%v; deleting rows instead", t, att.busy(), att.reason)

	n, err := l.deleteAll(ctx, t)
	if err != nil {
		return Outcome{}, &ClearError{Table: t, Exclusive: att.reason, Err: err}
	}
	return Outcome{Mode: ModeDeleteFallback, RowsCleared: n}, nil
}

// tryExclusive runs lock, truncate and commit in one transaction. Any failure
// rolls the transaction back and reports the attempt as contended.
func (l *Loader) tryExclusive(ctx context.Context, t config.TableID) lockAttempt {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return contended(fmt.Errorf("begin: %w", err))
	}
	if err := tx.LockExclusive(ctx, t); err != nil {
		rollback(ctx, tx, l.logf)
		return contended(err)
	}
	if err := tx.Truncate(ctx, t); err != nil {
		rollback(ctx, tx, l.logf)
		return contended(fmt.Errorf("truncate: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		rollback(ctx, tx, l.logf)
		return contended(fmt.Errorf("commit truncate: %w", err))
	}
	return lockAttempt{kind: attemptLocked}
}

func (l *Loader) deleteAll(ctx context.Context, t config.TableID) (int64, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	n, err := tx.DeleteAll(ctx, t)
	if err != nil {
		rollback(ctx, tx, l.logf)
		return 0, fmt.Errorf("delete: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		rollback(ctx, tx, l.logf)
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return n, nil
}

func (l *Loader) insert(ctx context.Context, t config.TableID, columns []string, rows [][]any) (int64, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	n, err := copyBatches(ctx, columns, rows, l.batchSize, func(ctx context.Context, cols []string, batch [][]any) (int64, error) {
		return tx.CopyIn(ctx, t, cols, batch)
	}, l.logf)
	if err != nil {
		rollback(ctx, tx, l.logf)
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		rollback(ctx, tx, l.logf)
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// rollback runs on a fresh context so a cancelled run still releases its
// session.
func rollback(ctx context.Context, tx storage.Tx, logf func(string, ...any)) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := tx.Rollback(rctx); err != nil {
		logf("loader: rollback err=%v", err)
	}
}
