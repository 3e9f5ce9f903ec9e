// Package postgres implements storage.Store on PostgreSQL using pgx v5.
//
// Catalog reads go through information_schema, the exclusive clear uses
// LOCK TABLE ... NOWAIT, and bulk loads stream CSV through COPY FROM STDIN.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

// Config holds Postgres store configuration.
type Config struct {
	DSN              string
	ConnectTimeout   time.Duration
	LockTimeout      time.Duration // session lock_timeout
	StatementTimeout time.Duration // session statement_timeout
	ApplicationName  string
}

// Store is a Postgres-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
	cfg  Config
}

var _ storage.Store = (*Store)(nil)

// NewStore opens a small pool and verifies connectivity.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	applySession(pc.ConnConfig, cfg)
	// A run uses one session at a time.
	pc.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool, cfg: cfg}, nil
}

// applySession copies timeouts and the application name into the startup
// parameters so every pooled session carries them.
func applySession(cc *pgx.ConnConfig, cfg Config) {
	if cfg.ConnectTimeout > 0 {
		cc.ConnectTimeout = cfg.ConnectTimeout
	}
	if cc.RuntimeParams == nil {
		cc.RuntimeParams = map[string]string{}
	}
	if cfg.LockTimeout > 0 {
		cc.RuntimeParams["lock_timeout"] = strconv.FormatInt(cfg.LockTimeout.Milliseconds(), 10)
	}
	if cfg.StatementTimeout > 0 {
		cc.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	if cfg.ApplicationName != "" {
		cc.RuntimeParams["application_name"] = cfg.ApplicationName
	}
}

const columnsSQL = `SELECT column_name::text, data_type::text
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

// Columns implements storage.Store.
func (s *Store) Columns(ctx context.Context, t config.TableID) ([]storage.Column, error) {
	rows, err := s.pool.Query(ctx, columnsSQL, t.Schema, t.Name)
	if err != nil {
		return nil, fmt.Errorf("postgres: query columns: %w", err)
	}
	cols, err := pgx.CollectRows(rows, pgx.RowToStructByPos[storage.Column])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan columns: %w", err)
	}
	return cols, nil
}

// Begin implements storage.Store.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	return newTx(tx), nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgTable quotes a schema-qualified table as "schema"."table".
func pgTable(t config.TableID) string { return pgIdent(t.Schema) + "." + pgIdent(t.Name) }

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
