package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

// insertBatch bounds rows per INSERT so the placeholder count stays well
// below the protocol limit of 65535 for any realistic column count.
const insertBatch = 500

type tx struct {
	tx *sql.Tx
}

var _ storage.Tx = (*tx)(nil)

func (t *tx) LockExclusive(ctx context.Context, id config.TableID) error {
	rows, err := t.tx.QueryContext(ctx, "SELECT 1 FROM "+myTable(id)+" FOR UPDATE NOWAIT")
	if err != nil {
		return classify(err)
	}
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return classify(err)
	}
	return rows.Close()
}

// Truncate deletes every row. TRUNCATE TABLE would commit implicitly and
// wait on the metadata lock, so the locked transaction deletes instead.
func (t *tx) Truncate(ctx context.Context, id config.TableID) error {
	_, err := t.DeleteAll(ctx, id)
	return err
}

func (t *tx) DeleteAll(ctx context.Context, id config.TableID) (int64, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM "+myTable(id))
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}

// CopyIn inserts rows with multi-row INSERT statements of up to insertBatch
// rows each.
func (t *tx) CopyIn(ctx context.Context, id config.TableID, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyIn: columns must not be empty")
	}
	var total int64
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		query, args, err := insertSQL(id, columns, rows[start:end])
		if err != nil {
			return total, err
		}
		res, err := t.tx.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("mysql: insert rows %d-%d: %w", start, end-1, classify(err))
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (t *tx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *tx) Rollback(context.Context) error { return t.tx.Rollback() }

// insertSQL builds one INSERT ... VALUES (...),(...) statement and its args.
func insertSQL(id config.TableID, columns []string, rows [][]any) (string, []any, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = myIdent(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", myTable(id), strings.Join(quoted, ", "))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mysql: row %d has %d values, want %d", i, len(row), len(columns))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, row...)
	}
	return b.String(), args, nil
}
