package mssql

import (
	"context"
	"testing"
	"time"

	"sheetsync/internal/storage"
)

// TestMSSQLStorageRegistrationUsesNewStoreHook verifies that the "mssql"
// backend registered in init() uses the newStore hook and propagates the
// session settings.
func TestMSSQLStorageRegistrationUsesNewStoreHook(t *testing.T) {
	orig := newStore
	defer func() { newStore = orig }()

	var (
		called bool
		gotCfg Config
	)
	newStore = func(ctx context.Context, cfg Config) (*Store, error) {
		called = true
		gotCfg = cfg
		return &Store{cfg: cfg}, nil
	}

	cfg := storage.Config{
		Kind:             "mssql",
		DSN:              "sqlserver://example",
		LockTimeout:      5 * time.Second,
		StatementTimeout: time.Minute,
		ApplicationName:  "sheetsync",
	}
	st, err := storage.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("storage.New() error = %v, want nil", err)
	}
	defer st.Close()

	if !called {
		t.Fatalf("newStore hook was not called")
	}
	if gotCfg.DSN != cfg.DSN || gotCfg.LockTimeout != cfg.LockTimeout ||
		gotCfg.StatementTimeout != cfg.StatementTimeout || gotCfg.ApplicationName != cfg.ApplicationName {
		t.Errorf("hook cfg = %+v, from %+v", gotCfg, cfg)
	}
}
