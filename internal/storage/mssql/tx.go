package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mssql "github.com/microsoft/go-mssqldb"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

type tx struct {
	tx          *sql.Tx
	lockTimeout time.Duration
	stmtTimeout time.Duration
}

var _ storage.Tx = (*tx)(nil)

func (t *tx) stmtCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.stmtTimeout > 0 {
		return context.WithTimeout(ctx, t.stmtTimeout)
	}
	return context.WithCancel(ctx)
}

// LockExclusive takes TABLOCKX with LOCK_TIMEOUT 0, so a held lock fails at
// once with error 1222. The lock lasts until the transaction ends.
func (t *tx) LockExclusive(ctx context.Context, id config.TableID) error {
	ctx, cancel := t.stmtCtx(ctx)
	defer cancel()

	if _, err := t.tx.ExecContext(ctx, "SET LOCK_TIMEOUT 0"); err != nil {
		return fmt.Errorf("mssql: set lock_timeout: %w", err)
	}
	_, err := t.tx.ExecContext(ctx, "SELECT TOP (1) 1 FROM "+msTable(id)+" WITH (TABLOCKX, HOLDLOCK)")
	if err != nil {
		if isLockTimeout(err) {
			return fmt.Errorf("%w: %v", storage.ErrLockUnavailable, err)
		}
		return fmt.Errorf("mssql: lock %s: %w", id, err)
	}
	if _, err := t.tx.ExecContext(ctx, lockTimeoutSQL(t.lockTimeout)); err != nil {
		return fmt.Errorf("mssql: restore lock_timeout: %w", err)
	}
	return nil
}

func (t *tx) Truncate(ctx context.Context, id config.TableID) error {
	ctx, cancel := t.stmtCtx(ctx)
	defer cancel()
	if _, err := t.tx.ExecContext(ctx, "TRUNCATE TABLE "+msTable(id)); err != nil {
		return fmt.Errorf("mssql: truncate %s: %w", id, err)
	}
	return nil
}

func (t *tx) DeleteAll(ctx context.Context, id config.TableID) (int64, error) {
	ctx, cancel := t.stmtCtx(ctx)
	defer cancel()
	res, err := t.tx.ExecContext(ctx, "DELETE FROM "+msTable(id))
	if err != nil {
		if isLockTimeout(err) {
			return 0, fmt.Errorf("%w: %v", storage.ErrLockUnavailable, err)
		}
		return 0, fmt.Errorf("mssql: delete %s: %w", id, err)
	}
	return res.RowsAffected()
}

// CopyIn streams rows through the bulk copy API into the explicit column list.
func (t *tx) CopyIn(ctx context.Context, id config.TableID, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ctx, cancel := t.stmtCtx(ctx)
	defer cancel()

	stmt, err := t.tx.PrepareContext(ctx, mssql.CopyIn(msTable(id), mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if len(rows[i]) != len(columns) {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %d values, want %d", i, len(rows[i]), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	return res.RowsAffected()
}

func (t *tx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *tx) Rollback(context.Context) error { return t.tx.Rollback() }
