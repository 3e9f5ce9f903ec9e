package mssql

import (
	"context"

	"sheetsync/internal/storage"
)

// newStore is a test hook that points to NewStore by default.
var newStore = NewStore

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return newStore(ctx, Config{
			DSN:              cfg.DSN,
			ConnectTimeout:   cfg.ConnectTimeout,
			LockTimeout:      cfg.LockTimeout,
			StatementTimeout: cfg.StatementTimeout,
			ApplicationName:  cfg.ApplicationName,
		})
	})
}
