// Package mssql implements storage.Store on Microsoft SQL Server using
// go-mssqldb. Loads use the driver's bulk copy API inside the transaction.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

// errLockTimeout is SQL Server error 1222, "Lock request time out period
// exceeded", raised when LOCK_TIMEOUT expires (immediately when it is 0).
const errLockTimeout = 1222

// Config holds MSSQL store configuration.
type Config struct {
	DSN              string
	ConnectTimeout   time.Duration
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	ApplicationName  string
}

// Store is an MSSQL-backed storage.Store.
type Store struct {
	db  *sql.DB
	cfg Config
}

var _ storage.Store = (*Store)(nil)

// NewStore validates the DSN, opens the pool and pings the server.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	dsn := withSessionParams(cfg)
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// withSessionParams adds "app name" and "dial timeout" to the DSN unless the
// caller already set them. Both URL (sqlserver://) and ADO forms are handled.
func withSessionParams(cfg Config) string {
	params := map[string]string{}
	if cfg.ApplicationName != "" {
		params["app name"] = cfg.ApplicationName
	}
	if cfg.ConnectTimeout > 0 {
		params["dial timeout"] = strconv.Itoa(int(cfg.ConnectTimeout.Seconds()))
	}
	if len(params) == 0 {
		return cfg.DSN
	}

	if strings.HasPrefix(cfg.DSN, "sqlserver://") {
		u, err := url.Parse(cfg.DSN)
		if err != nil {
			return cfg.DSN
		}
		q := u.Query()
		for k, v := range params {
			if q.Get(k) == "" {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	out := strings.TrimRight(cfg.DSN, ";")
	lower := strings.ToLower(out)
	for _, k := range []string{"app name", "dial timeout"} {
		v, ok := params[k]
		if !ok || strings.Contains(lower, k+"=") {
			continue
		}
		out += ";" + k + "=" + v
	}
	return out
}

const columnsSQL = `SELECT COLUMN_NAME, DATA_TYPE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`

// Columns implements storage.Store.
func (s *Store) Columns(ctx context.Context, t config.TableID) ([]storage.Column, error) {
	rows, err := s.db.QueryContext(ctx, columnsSQL, t.Schema, t.Name)
	if err != nil {
		return nil, fmt.Errorf("mssql: query columns: %w", err)
	}
	defer rows.Close()

	var cols []storage.Column
	for rows.Next() {
		var c storage.Column
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, fmt.Errorf("mssql: scan columns: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Begin implements storage.Store. The session lock timeout is set first so
// ordinary statements wait at most LockTimeout.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mssql: begin tx: %w", err)
	}
	x := &tx{tx: sqlTx, lockTimeout: s.cfg.LockTimeout, stmtTimeout: s.cfg.StatementTimeout}
	if _, err := sqlTx.ExecContext(ctx, lockTimeoutSQL(s.cfg.LockTimeout)); err != nil {
		_ = sqlTx.Rollback()
		return nil, fmt.Errorf("mssql: set lock_timeout: %w", err)
	}
	return x, nil
}

// Close closes the pool.
func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// lockTimeoutSQL renders SET LOCK_TIMEOUT; zero or negative means wait forever
// except for the explicit probe, which sets 0 itself.
func lockTimeoutSQL(d time.Duration) string {
	ms := int64(-1)
	if d > 0 {
		ms = d.Milliseconds()
	}
	return fmt.Sprintf("SET LOCK_TIMEOUT %d", ms)
}

// isLockTimeout reports SQL Server error 1222.
func isLockTimeout(err error) bool {
	var me mssql.Error
	if errors.As(err, &me) {
		return me.Number == errLockTimeout
	}
	var mp *mssql.Error
	if errors.As(err, &mp) {
		return mp.Number == errLockTimeout
	}
	return false
}

func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

func msTable(t config.TableID) string { return msIdent(t.Schema) + "." + msIdent(t.Name) }
