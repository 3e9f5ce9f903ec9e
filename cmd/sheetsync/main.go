// Command sheetsync replaces the contents of database tables with the rows of
// spreadsheet exports.
//
// Usage:
//
//	sheetsync -jobs configs/jobs.yaml [-job cities,hr] [-parallel 2] [-every 1h]
//	sheetsync -source <sheet link> -table hr.lop_cities        # single job
//	sheetsync -jobs configs/jobs.yaml -validate                 # lint, probe, exit
//
// Every flag falls back to an environment variable (DATABASE_URL, JOBS_FILE,
// SHEET_URL, TARGET_TABLE, ...). Exit status is 0 on success, 1 when a run
// fails and 2 for configuration errors.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// register all backends with the storage factory.
	_ "sheetsync/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
