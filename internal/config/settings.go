package config

import (
	"flag"
	"strconv"
	"strings"
	"time"
)

// Settings holds process configuration derived from flags and environment
// variables. It is built once at start-up and passed by value or pointer to
// whoever needs it; nothing in the program reads the environment afterwards.
type Settings struct {
	// Jobs selection.
	JobsFile string   // JSON/YAML jobs file; empty means single-job env mode.
	JobNames []string // optional -job filter

	// Single-job mode, mirroring the one-sheet-per-process deployments.
	SheetURL         string
	TargetTable      string
	ExcludeColumns   []string
	LowercaseHeaders bool

	// Destination.
	StorageKind      string // postgres, sqlite, mssql or mysql
	DSN              string
	ConnectTimeout   time.Duration
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	ApplicationName  string

	// Source fetching.
	HTTPTimeout time.Duration
	HTTPRetries int
	UserAgent   string

	// Metrics.
	MetricsBackend string // none, pushgateway or datadog
	PushgatewayURL string
	DogStatsdAddr  string

	// Execution.
	Parallel int
	Every    time.Duration // 0 runs once
	Validate bool
	Verbose  bool
}

// LoadFromArgs defines flags on fs, seeds each default from getenv, and parses
// args. Explicit flags override environment values. Tests pass a private
// FlagSet and a map-backed getenv to stay hermetic.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Settings, error) {
	s := &Settings{}

	envOr := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOr := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOr := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}
	durEnvOr := func(k string, d time.Duration) time.Duration {
		if v := getenv(k); v != "" {
			if dd, err := time.ParseDuration(v); err == nil {
				return dd
			}
		}
		return d
	}

	var jobNames, exclude string

	fs.StringVar(&s.JobsFile, "jobs", getenv("JOBS_FILE"), "JSON or YAML jobs file")
	fs.StringVar(&jobNames, "job", getenv("JOB"), "comma-separated job names to run (default: all)")

	fs.StringVar(&s.SheetURL, "source", getenv("SHEET_URL"), "single-job mode: sheet link, CSV URL or local path")
	fs.StringVar(&s.TargetTable, "table", getenv("TARGET_TABLE"), "single-job mode: destination schema.table")
	fs.StringVar(&exclude, "exclude", envOr("EXCLUDE_COLUMNS", "updated_at"), "single-job mode: comma-separated columns never loaded")
	fs.BoolVar(&s.LowercaseHeaders, "lowercase", boolEnvOr("LOWERCASE_HEADERS", false), "single-job mode: lower-case sheet headers")

	fs.StringVar(&s.StorageKind, "storage", envOr("STORAGE_KIND", "postgres"), "destination backend: postgres, sqlite, mssql or mysql")
	fs.StringVar(&s.DSN, "dsn", getenv("DATABASE_URL"), "destination connection string")
	fs.DurationVar(&s.ConnectTimeout, "connect-timeout", durEnvOr("CONNECT_TIMEOUT", 10*time.Second), "destination connect timeout")
	fs.DurationVar(&s.LockTimeout, "lock-timeout", durEnvOr("LOCK_TIMEOUT", 5*time.Second), "session lock_timeout")
	fs.DurationVar(&s.StatementTimeout, "statement-timeout", durEnvOr("STATEMENT_TIMEOUT", 120*time.Second), "session statement_timeout")
	fs.StringVar(&s.ApplicationName, "app-name", envOr("APPLICATION_NAME", "sheetsync"), "application_name reported to the database")

	fs.DurationVar(&s.HTTPTimeout, "http-timeout", durEnvOr("HTTP_TIMEOUT", 30*time.Second), "source download timeout")
	fs.IntVar(&s.HTTPRetries, "http-retries", intEnvOr("HTTP_RETRIES", 0), "retries for 5xx/429 source responses")
	fs.StringVar(&s.UserAgent, "user-agent", envOr("USER_AGENT", "sheetsync"), "User-Agent for source downloads")

	fs.StringVar(&s.MetricsBackend, "metrics-backend", envOr("METRICS_BACKEND", "none"), "metrics backend: none, pushgateway or datadog")
	fs.StringVar(&s.PushgatewayURL, "pushgateway-url", envOr("PUSHGATEWAY_URL", "http://localhost:9091"), "Pushgateway base URL")
	fs.StringVar(&s.DogStatsdAddr, "dogstatsd-addr", envOr("DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address")

	fs.IntVar(&s.Parallel, "parallel", intEnvOr("PARALLEL", 1), "jobs run concurrently (each job is still a single-threaded run)")
	fs.DurationVar(&s.Every, "every", durEnvOr("EVERY", 0), "run on a fixed interval instead of once")
	fs.BoolVar(&s.Validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&s.Verbose, "v", boolEnvOr("VERBOSE", false), "verbose logs")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, &ConfigError{Field: "flags", Message: err.Error()}
	}

	s.JobNames = splitList(jobNames)
	s.ExcludeColumns = splitList(exclude)
	if s.Parallel < 1 {
		s.Parallel = 1
	}
	return s, nil
}

// Jobs resolves the job list: the jobs file when set, otherwise one job built
// from the single-job settings.
func (s *Settings) Jobs() ([]Job, error) {
	if s.JobsFile != "" {
		jobs, err := LoadJobs(s.JobsFile)
		if err != nil {
			return nil, err
		}
		return SelectJobs(jobs, s.JobNames)
	}
	if s.SheetURL == "" && s.TargetTable == "" {
		return nil, &ConfigError{Field: "jobs", Message: "set -jobs (JOBS_FILE) or -source/-table (SHEET_URL/TARGET_TABLE)"}
	}
	return []Job{{
		Name:             "default",
		Source:           s.SheetURL,
		Table:            s.TargetTable,
		Exclude:          s.ExcludeColumns,
		LowercaseHeaders: s.LowercaseHeaders,
	}}, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
