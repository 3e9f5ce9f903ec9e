package sqlite

import (
	"context"

	"sheetsync/internal/storage"
)

// newStore is a test hook that points to NewStore by default.
var newStore = NewStore

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return newStore(ctx, Config{
			DSN:            cfg.DSN,
			LockTimeout:    cfg.LockTimeout,
			ConnectTimeout: cfg.ConnectTimeout,
		})
	})
}
