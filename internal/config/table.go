package config

import (
	"fmt"
	"strings"
)

// ConfigError reports a malformed or missing configuration value. It is
// always raised before any I/O against the destination.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// TableID is a schema-qualified destination table.
type TableID struct {
	Schema string
	Name   string
}

// String returns the unquoted "schema.table" form.
func (t TableID) String() string { return t.Schema + "." + t.Name }

// ParseTable splits "schema.table" into a TableID. Exactly one separator with
// non-empty parts on both sides is accepted; the schema is never defaulted.
func ParseTable(s string) (TableID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TableID{}, &ConfigError{Field: "table", Message: "table identifier is empty; want schema.table"}
	}
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return TableID{}, &ConfigError{Field: "table", Message: fmt.Sprintf("%q must have the form schema.table", s)}
	}
	schema, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if schema == "" || name == "" {
		return TableID{}, &ConfigError{Field: "table", Message: fmt.Sprintf("%q must have the form schema.table", s)}
	}
	return TableID{Schema: schema, Name: name}, nil
}
