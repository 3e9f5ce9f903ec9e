package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

type tx struct {
	conn    *sql.Conn
	busy    time.Duration
	started bool
	done    bool
}

var _ storage.Tx = (*tx)(nil)

func (t *tx) begin(ctx context.Context, mode string, busy time.Duration) error {
	if t.done {
		return errors.New("sqlite: transaction already finished")
	}
	if t.started {
		return nil
	}
	if _, err := t.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())); err != nil {
		return fmt.Errorf("sqlite: busy_timeout: %w", err)
	}
	if _, err := t.conn.ExecContext(ctx, "BEGIN "+mode); err != nil {
		return err
	}
	t.started = true
	return nil
}

// LockExclusive opens the transaction with BEGIN EXCLUSIVE and no busy wait.
// It must be the first call on the transaction.
func (t *tx) LockExclusive(ctx context.Context, _ config.TableID) error {
	if t.started {
		return errors.New("sqlite: exclusive lock must be taken before any other statement")
	}
	if err := t.begin(ctx, "EXCLUSIVE", 0); err != nil {
		if isBusy(err) {
			return fmt.Errorf("%w: %v", storage.ErrLockUnavailable, err)
		}
		return fmt.Errorf("sqlite: begin exclusive: %w", err)
	}
	return nil
}

func (t *tx) Truncate(ctx context.Context, id config.TableID) error {
	_, err := t.DeleteAll(ctx, id)
	return err
}

func (t *tx) DeleteAll(ctx context.Context, id config.TableID) (int64, error) {
	if err := t.begin(ctx, "IMMEDIATE", t.busy); err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	res, err := t.conn.ExecContext(ctx, "DELETE FROM "+sqTable(id))
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete: %w", err)
	}
	return res.RowsAffected()
}

// CopyIn inserts rows with one prepared statement. SQLite has no bulk-load
// API; a single transaction keeps it fast enough for sheet-sized tables.
func (t *tx) CopyIn(ctx context.Context, id config.TableID, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyIn: columns must not be empty")
	}
	if err := t.begin(ctx, "IMMEDIATE", t.busy); err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqIdent(c)
		placeholders[i] = "?"
	}
	stmt, err := t.conn.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		sqTable(id), strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
	))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			return inserted, fmt.Errorf("sqlite: CopyIn: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return inserted, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

func (t *tx) Commit(ctx context.Context) error {
	return t.finish(ctx, "COMMIT")
}

func (t *tx) Rollback(ctx context.Context) error {
	return t.finish(ctx, "ROLLBACK")
}

// finish ends the transaction and returns the pinned connection to the pool.
func (t *tx) finish(ctx context.Context, stmt string) error {
	if t.done {
		return nil
	}
	t.done = true
	var err error
	if t.started {
		if _, err = t.conn.ExecContext(ctx, stmt); err != nil && stmt == "COMMIT" {
			_, _ = t.conn.ExecContext(ctx, "ROLLBACK")
		}
	}
	if cerr := t.conn.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("sqlite: %s: %w", strings.ToLower(stmt), err)
	}
	return nil
}
