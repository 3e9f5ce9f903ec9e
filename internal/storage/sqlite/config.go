// Package sqlite implements storage.Store on SQLite (modernc.org/sqlite).
package sqlite

import "time"

// Config holds SQLite store configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:sheets.db"
	//   "sheets.db" (interpreted by the driver)
	// Tables are addressed as "main.<table>" (or "<attached>.<table>").
	DSN string

	// LockTimeout is the busy timeout for ordinary transactions. The
	// exclusive probe always runs with a zero busy timeout.
	LockTimeout time.Duration

	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration
}
