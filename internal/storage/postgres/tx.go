package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

// codeLockNotAvailable is SQLSTATE lock_not_available, raised by NOWAIT and
// by lock_timeout expiry.
const codeLockNotAvailable = "55P03"

// pgxTx is the subset of pgx.Tx used here; tests substitute a fake.
type pgxTx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// copyFromFn streams r into a COPY ... FROM STDIN statement.
type copyFromFn func(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error)

type tx struct {
	tx       pgxTx
	copyFrom copyFromFn
}

var _ storage.Tx = (*tx)(nil)

func newTx(t pgx.Tx) *tx {
	return &tx{
		tx: t,
		copyFrom: func(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
			return t.Conn().PgConn().CopyFrom(ctx, r, sql)
		},
	}
}

func (t *tx) LockExclusive(ctx context.Context, id config.TableID) error {
	_, err := t.tx.Exec(ctx, "LOCK TABLE "+pgTable(id)+" IN ACCESS EXCLUSIVE MODE NOWAIT")
	return classify(err)
}

func (t *tx) Truncate(ctx context.Context, id config.TableID) error {
	_, err := t.tx.Exec(ctx, "TRUNCATE TABLE "+pgTable(id))
	return classify(err)
}

func (t *tx) DeleteAll(ctx context.Context, id config.TableID) (int64, error) {
	tag, err := t.tx.Exec(ctx, "DELETE FROM "+pgTable(id))
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

func (t *tx) CopyIn(ctx context.Context, id config.TableID, columns []string, rows [][]any) (int64, error) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, columns, rows); err != nil {
		return 0, err
	}
	tag, err := t.copyFrom(ctx, &buf, copySQL(id, columns))
	if err != nil {
		return 0, fmt.Errorf("postgres: copy into %s: %w", id, classify(err))
	}
	return tag.RowsAffected(), nil
}

func (t *tx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// copySQL addresses the explicit column list; the stream carries a header
// line, \N marks NULL, and text is UTF-8.
func copySQL(id config.TableID, columns []string) string {
	return fmt.Sprintf(
		`COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true, NULL '\N', ENCODING 'UTF8')`,
		pgTable(id), strings.Join(mapIdent(columns), ", "),
	)
}

// classify wraps lock_not_available errors with storage.ErrLockUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeLockNotAvailable {
		return fmt.Errorf("%w: %s", storage.ErrLockUnavailable, pgErr.Message)
	}
	return err
}
