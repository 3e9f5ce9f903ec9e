// Package config provides configuration models and helpers for sheetsync.
//
// This file adds a lightweight linter for Settings and Jobs. It performs static
// checks and returns a list of issues (errors and warnings) that the CLI
// surfaces before any network or database work happens.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration smell that does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding.
//
// Path is a dotted path into the config (e.g. "jobs[1].table",
// "settings.dsn"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateSettings checks process-level settings.
func ValidateSettings(s Settings) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "settings.dsn",
			Message:  "destination connection string is empty; set -dsn or DATABASE_URL",
		})
	}

	knownStorage := map[string]struct{}{
		"postgres": {},
		"sqlite":   {},
		"mssql":    {},
		"mysql":    {},
	}
	if _, ok := knownStorage[s.StorageKind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "settings.storage",
			Message:  fmt.Sprintf("unknown storage kind %q; want postgres, sqlite, mssql or mysql", s.StorageKind),
		})
	}

	switch s.MetricsBackend {
	case "", "none", "pushgateway", "datadog":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "settings.metrics_backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", s.MetricsBackend),
		})
	}

	if s.Every < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "settings.every",
			Message:  "schedule interval must not be negative",
		})
	}
	if s.HTTPRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "settings.http_retries",
			Message:  "http retries must not be negative",
		})
	}

	return issues
}

// ValidateJobs lints a job list. It never mutates the jobs.
func ValidateJobs(jobs []Job) []Issue {
	var issues []Issue

	if len(jobs) == 0 {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "jobs",
			Message:  "no jobs configured",
		})
	}

	names := map[string]int{}
	tables := map[string]int{}
	for i, j := range jobs {
		issues = append(issues, validateJob(i, j)...)

		if j.Name != "" {
			if prev, dup := names[j.Name]; dup {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("jobs[%d].name", i),
					Message:  fmt.Sprintf("duplicate job name %q (also jobs[%d])", j.Name, prev),
				})
			} else {
				names[j.Name] = i
			}
		}
		if t, err := j.TableID(); err == nil {
			key := strings.ToLower(t.String())
			if prev, dup := tables[key]; dup {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     fmt.Sprintf("jobs[%d].table", i),
					Message:  fmt.Sprintf("table %s is also the target of jobs[%d]; the later run replaces the earlier one", t, prev),
				})
			} else {
				tables[key] = i
			}
		}
	}
	return issues
}

func validateJob(i int, j Job) []Issue {
	var issues []Issue
	path := func(field string) string { return fmt.Sprintf("jobs[%d].%s", i, field) }

	if strings.TrimSpace(j.Name) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path("name"),
			Message:  "job name must not be empty; it labels logs and metrics",
		})
	}
	if strings.TrimSpace(j.Source) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path("source"),
			Message:  "source must not be empty",
		})
	}
	if _, err := j.TableID(); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path("table"),
			Message:  err.Error(),
		})
	}

	switch j.SourceFormat() {
	case FormatCSV:
		if j.Sheet != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path("sheet"),
				Message:  "sheet is ignored for csv sources; the gid in the link selects the sheet",
			})
		}
	case FormatXLSX:
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path("format"),
			Message:  fmt.Sprintf("unknown format %q; want csv or xlsx", j.Format),
		})
	}

	for k, a := range j.Aliases {
		if strings.TrimSpace(a.From) == "" || strings.TrimSpace(a.To) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("jobs[%d].aliases[%d]", i, k),
				Message:  "alias needs both a sheet label and a column name",
			})
		}
	}

	excluded := map[string]struct{}{}
	for _, c := range j.Exclude {
		excluded[c] = struct{}{}
	}
	for _, c := range j.Required {
		if _, ok := excluded[c]; ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path("required"),
				Message:  fmt.Sprintf("column %q is both required and excluded; exclusion wins", c),
			})
		}
	}

	if j.ExactSchema && len(j.Required) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path("exact_schema"),
			Message:  "exact_schema needs the expected column list in required",
		})
	}

	return issues
}
