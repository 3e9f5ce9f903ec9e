package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sheetsync/internal/config"
	"sheetsync/internal/pipeline"
)

func noEnv(string) string { return "" }

// newDB creates a SQLite file with the given statements applied and returns
// its path and an open handle.
func newDB(t *testing.T, stmts ...string) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dest.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return path, db
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, noEnv, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const citiesDDL = `CREATE TABLE cities (city TEXT, population INTEGER, updated_at TEXT DEFAULT 'server')`

func TestRun_SingleJob(t *testing.T) {
	t.Parallel()

	dsn, db := newDB(t, citiesDDL, `INSERT INTO cities (city) VALUES ('Old')`)
	src := writeFile(t, "cities.csv", "City,Population\nSpringfield,\"1,234\"\nShelbyville,7\n")

	code, out, errOut := runCLI(t, "-storage", "sqlite", "-dsn", dsn, "-source", src, "-table", "main.cities", "-lowercase")
	if code != exitOK {
		t.Fatalf("exit = %d; stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "OK | rows=2 | cols=2") || !strings.Contains(out, "mode=full-lock") {
		t.Fatalf("stdout = %q", out)
	}

	var n int
	if err := db.QueryRow(`SELECT count(*) FROM cities WHERE city <> 'Old'`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad flag", []string{"-no-such-flag"}, "flags"},
		{"no jobs", []string{"-storage", "sqlite", "-dsn", "x.db"}, "-source"},
		{"bad table", []string{"-storage", "sqlite", "-dsn", "x.db", "-source", "a.csv", "-table", "cities"}, "schema.table"},
		{"unknown storage", []string{"-storage", "oracle", "-dsn", "x", "-source", "a.csv", "-table", "a.b"}, "oracle"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, _, errOut := runCLI(t, tc.args...)
			if code != exitConfig {
				t.Fatalf("exit = %d, want %d; stderr:\n%s", code, exitConfig, errOut)
			}
			if !strings.Contains(errOut, tc.want) {
				t.Fatalf("stderr %q does not mention %q", errOut, tc.want)
			}
		})
	}
}

func TestRun_MissingTableFails(t *testing.T) {
	t.Parallel()

	dsn, _ := newDB(t)
	src := writeFile(t, "cities.csv", "city\nSpringfield\n")

	code, _, errOut := runCLI(t, "-storage", "sqlite", "-dsn", dsn, "-source", src, "-table", "main.cities")
	if code != exitFailure {
		t.Fatalf("exit = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(errOut, "FAIL | job=default | stage=schema") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestRun_JobsFileKeepsGoingAfterFailure(t *testing.T) {
	t.Parallel()

	dsn, db := newDB(t, citiesDDL)
	good := writeFile(t, "cities.csv", "city,population\nSpringfield,1\n")
	jobs := writeFile(t, "jobs.yaml", fmt.Sprintf(`
jobs:
  - name: cities
    source: %s
    table: main.cities
  - name: broken
    source: %s
    table: main.nope
`, good, good))

	code, out, errOut := runCLI(t, "-storage", "sqlite", "-dsn", dsn, "-jobs", jobs, "-parallel", "2")
	if code != exitFailure {
		t.Fatalf("exit = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(out, "target=main.cities") {
		t.Fatalf("stdout = %q", out)
	}
	if !strings.Contains(errOut, "job=broken") {
		t.Fatalf("stderr = %q", errOut)
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM cities`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestRun_Validate(t *testing.T) {
	t.Parallel()

	dsn, db := newDB(t, citiesDDL, `INSERT INTO cities (city) VALUES ('Keep')`)
	src := writeFile(t, "cities.csv", "city\nSpringfield\n")

	code, out, errOut := runCLI(t, "-storage", "sqlite", "-dsn", dsn, "-source", src, "-table", "main.cities", "-validate")
	if code != exitOK {
		t.Fatalf("exit = %d; stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "ok | job=default") {
		t.Fatalf("stdout = %q", out)
	}
	var city string
	if err := db.QueryRow(`SELECT city FROM cities`).Scan(&city); err != nil || city != "Keep" {
		t.Fatalf("validate changed data: %q, %v", city, err)
	}

	missing := filepath.Join(t.TempDir(), "missing.csv")
	code, _, errOut = runCLI(t, "-storage", "sqlite", "-dsn", dsn, "-source", missing, "-table", "main.cities", "-validate")
	if code != exitFailure || !strings.Contains(errOut, "source:") {
		t.Fatalf("missing source: exit = %d, stderr = %q", code, errOut)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	cfg := &pipeline.StageError{Job: "a", Stage: pipeline.StageConfig, Err: &config.ConfigError{Field: "table", Message: "bad"}}
	if got := exitCode(cfg); got != exitConfig {
		t.Errorf("config stage: %d", got)
	}
	if got := exitCode(errors.New("boom")); got != exitFailure {
		t.Errorf("plain error: %d", got)
	}
	if got := failLine(cfg); !strings.HasPrefix(got, "FAIL | job=a | stage=config |") {
		t.Errorf("failLine = %q", got)
	}
}

func TestSchedule_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	ran := make(chan struct{}, 1)
	done := make(chan int, 1)
	go func() {
		done <- schedule(ctx, time.Hour, func() int {
			if calls.Add(1) == 1 {
				ran <- struct{}{}
			}
			return exitOK
		})
	}()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not start")
	}
	cancel()
	select {
	case code := <-done:
		if code != exitOK {
			t.Fatalf("exit = %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("schedule did not stop")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestShippedJobsFileValidates(t *testing.T) {
	t.Parallel()

	jobs, err := config.LoadJobs(filepath.Join("..", "..", "configs", "jobs.yaml"))
	if err != nil {
		t.Fatalf("LoadJobs: %v", err)
	}
	if issues := config.ValidateJobs(jobs); len(issues) != 0 {
		t.Fatalf("issues: %+v", issues)
	}
}
