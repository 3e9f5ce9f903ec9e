// Package storage defines the destination contract used by the loader and the
// schema reader, plus a small factory so callers can open a backend by kind
// ("postgres", "sqlite", "mssql") without importing it directly.
//
// Backends register themselves from init(); import storage/all to enable every
// built-in backend.
package storage

import (
	"context"
	"errors"
	"time"

	"sheetsync/internal/config"
)

// ErrLockUnavailable is returned (wrapped) by Tx.LockExclusive when another
// session holds a conflicting lock and the backend refused to wait.
var ErrLockUnavailable = errors.New("storage: exclusive table lock unavailable")

// Config carries the connection settings shared by every backend.
type Config struct {
	Kind string
	DSN  string

	ConnectTimeout   time.Duration
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	ApplicationName  string
}

// ConfigFromSettings maps process settings onto a storage.Config.
func ConfigFromSettings(s *config.Settings) Config {
	return Config{
		Kind:             s.StorageKind,
		DSN:              s.DSN,
		ConnectTimeout:   s.ConnectTimeout,
		LockTimeout:      s.LockTimeout,
		StatementTimeout: s.StatementTimeout,
		ApplicationName:  s.ApplicationName,
	}
}

// Column is one catalog row: a column name and its declared type as reported
// by the backend (e.g. "character varying", "INTEGER", "nvarchar").
type Column struct {
	Name     string
	DataType string
}

// Store is an open destination database.
type Store interface {
	// Columns returns the table's columns in physical ordinal order. A table
	// that does not exist (or is not visible) yields an empty slice.
	Columns(ctx context.Context, t config.TableID) ([]Column, error)

	// Begin opens a transaction. Each Tx runs on a single session.
	Begin(ctx context.Context) (Tx, error)

	Close()
}

// Tx is a single destination transaction.
type Tx interface {
	// LockExclusive takes a table-level exclusive lock without waiting. When
	// the lock is held elsewhere the error wraps ErrLockUnavailable. Backends
	// that can only lock at transaction start require it to be the first call.
	LockExclusive(ctx context.Context, t config.TableID) error

	// Truncate empties the table. It is only called under LockExclusive.
	Truncate(ctx context.Context, t config.TableID) error

	// DeleteAll deletes every row and returns the number removed.
	DeleteAll(ctx context.Context, t config.TableID) (int64, error)

	// CopyIn bulk loads rows into the named columns. Each row holds
	// len(columns) values of type nil, string, int64 or float64.
	CopyIn(ctx context.Context, t config.TableID, columns []string, rows [][]any) (int64, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
