package postgres

import (
	"context"

	"sheetsync/internal/storage"
)

// newStore is a test hook that points to NewStore by default. Tests may
// replace it to avoid real DB connections.
var newStore = NewStore

// init registers the "postgres" backend with the storage factory so callers
// can stay backend-agnostic:
//
//	st, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn})
//	defer st.Close()
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return newStore(ctx, Config{
			DSN:              cfg.DSN,
			ConnectTimeout:   cfg.ConnectTimeout,
			LockTimeout:      cfg.LockTimeout,
			StatementTimeout: cfg.StatementTimeout,
			ApplicationName:  cfg.ApplicationName,
		})
	})
}
