package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

// Store is a SQLite-backed storage.Store. Transactions run on a pinned
// connection with explicit BEGIN/COMMIT so the lock mode can be chosen per
// transaction.
type Store struct {
	db  *sql.DB
	cfg Config
}

var _ storage.Store = (*Store)(nil)

// NewStore opens the database and pings it.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// DB exposes the handle for tests and tooling.
func (s *Store) DB() *sql.DB { return s.db }

const columnsSQL = `SELECT name, type FROM pragma_table_info(?1, ?2) ORDER BY cid`

// Columns implements storage.Store. An unknown schema reads as an absent
// table.
func (s *Store) Columns(ctx context.Context, t config.TableID) ([]storage.Column, error) {
	rows, err := s.db.QueryContext(ctx, columnsSQL, t.Name, t.Schema)
	if err != nil {
		if strings.Contains(err.Error(), "unknown database") {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: query columns: %w", err)
	}
	defer rows.Close()

	var cols []storage.Column
	for rows.Next() {
		var c storage.Column
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, fmt.Errorf("sqlite: scan columns: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		if strings.Contains(err.Error(), "unknown database") {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: columns: %w", err)
	}
	return cols, nil
}

// Begin implements storage.Store. The BEGIN itself is deferred to the first
// statement so LockExclusive can open the transaction in EXCLUSIVE mode.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: conn: %w", err)
	}
	return &tx{conn: conn, busy: s.cfg.LockTimeout}, nil
}

// Close closes the database handle.
func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// isBusy reports SQLITE_BUSY / SQLITE_LOCKED, including extended codes.
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// sqIdent quotes one identifier segment.
func sqIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func sqTable(t config.TableID) string { return sqIdent(t.Schema) + "." + sqIdent(t.Name) }
