// Package mysql implements storage.Store on MySQL 8 using go-sql-driver/mysql.
//
// MySQL has no non-blocking table lock usable inside a transaction, so the
// exclusive lock query locks every row with SELECT ... FOR UPDATE NOWAIT. Every
// transaction is opened at REPEATABLE READ whatever the server default is:
// only there does the full-scan lock also cover the gaps, keeping concurrent
// inserts out until the transaction ends. Under READ COMMITTED it
// would lock existing rows only. The query touches every row, so it suits
// sheet-sized tables, not large ones.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

// Server error numbers that mean "someone else holds the lock".
const (
	errLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	errLockNowait      = 3572 // ER_LOCK_NOWAIT
)

// Config holds MySQL store configuration.
type Config struct {
	DSN              string // go-sql-driver form: user:pw@tcp(host:3306)/db
	ConnectTimeout   time.Duration
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	ApplicationName  string
}

// Store is a MySQL-backed storage.Store.
type Store struct {
	db  *sql.DB
	cfg Config
}

var _ storage.Store = (*Store)(nil)

// NewStore parses the DSN, applies session settings and pings the server.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	mc, err := driverConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// driverConfig maps Config onto the driver's settings. Unknown DSN params are
// sent by the driver as session SET statements, which is how the lock and
// statement timeouts reach the server.
func driverConfig(cfg Config) (*mysql.Config, error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	if cfg.LockTimeout > 0 {
		secs := strconv.Itoa(max(1, int(cfg.LockTimeout.Seconds())))
		mc.Params["innodb_lock_wait_timeout"] = secs
		mc.Params["lock_wait_timeout"] = secs
	}
	if cfg.StatementTimeout > 0 {
		mc.Params["max_execution_time"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	if cfg.ApplicationName != "" && mc.ConnectionAttributes == "" {
		mc.ConnectionAttributes = "program_name:" + cfg.ApplicationName
	}
	return mc, nil
}

// txOptions pins the isolation level the gap-locking lock query relies on.
var txOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}

const columnsSQL = `SELECT COLUMN_NAME, DATA_TYPE
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

// Columns implements storage.Store. The TableID schema is the database name.
func (s *Store) Columns(ctx context.Context, t config.TableID) ([]storage.Column, error) {
	rows, err := s.db.QueryContext(ctx, columnsSQL, t.Schema, t.Name)
	if err != nil {
		return nil, fmt.Errorf("mysql: query columns: %w", err)
	}
	defer rows.Close()

	var cols []storage.Column
	for rows.Next() {
		var c storage.Column
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, fmt.Errorf("mysql: scan columns: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Begin implements storage.Store.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, fmt.Errorf("mysql: begin tx: %w", err)
	}
	return &tx{tx: sqlTx}, nil
}

// Close closes the pool.
func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// classify wraps lock conflicts with storage.ErrLockUnavailable.
func classify(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == errLockNowait || me.Number == errLockWaitTimeout) {
		return fmt.Errorf("%w: %v", storage.ErrLockUnavailable, err)
	}
	return err
}

func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func myTable(t config.TableID) string { return myIdent(t.Schema) + "." + myIdent(t.Name) }
