// Package config defines the configuration model for sheetsync: the process
// Settings built once from flags and environment variables, and the Job
// descriptions (one per spreadsheet/table pairing) loaded from a jobs file.
//
// A jobs file is JSON or YAML:
//
//	jobs:
//	  - name: cities
//	    source: https://docs.google.com/spreadsheets/d/<id>/edit?gid=0#gid=0
//	    table: hr.lop_cities
//	    exclude: [updated_at]
//	  - name: partner_rates
//	    source: https://docs.google.com/spreadsheets/d/<id>/edit?gid=42
//	    table: analytics.partner_cities_oc_rate
//	    lowercase_headers: true
//	    aliases: { город: city, min: oc_rate_ps_min, max: oc_rate_ps_max }
//	    required: [city, operator, type, format, oc_rate_ps_min, oc_rate_ps_max]
//
// Alias tables keep their declaration order in both encodings so that the
// "first matching alias wins" rule is deterministic.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source formats understood by the fetcher.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Job describes one spreadsheet → table synchronization.
type Job struct {
	// Name identifies the job in logs, metrics and the -job filter.
	Name string `json:"name" yaml:"name"`

	// Source is a Google Sheets UI link (with gid), a direct CSV/XLSX URL, or
	// a local file path.
	Source string `json:"source" yaml:"source"`

	// Format is "csv" (default) or "xlsx".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Sheet selects the worksheet for xlsx sources. Empty means the first one.
	Sheet string `json:"sheet,omitempty" yaml:"sheet,omitempty"`

	// Table is the destination in schema.table form.
	Table string `json:"table" yaml:"table"`

	// Aliases maps normalized sheet labels to destination column names.
	Aliases AliasTable `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// Required, when non-empty, restricts the load to these columns.
	Required []string `json:"required,omitempty" yaml:"required,omitempty"`

	// Exclude lists server-managed columns that are never loaded
	// (e.g. an updated_at maintained by a trigger).
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// LowercaseHeaders folds sheet labels to lower case during normalization.
	LowercaseHeaders bool `json:"lowercase_headers,omitempty" yaml:"lowercase_headers,omitempty"`

	// EmptyTextAsNull loads empty text cells as NULL instead of ''.
	EmptyTextAsNull bool `json:"empty_text_as_null,omitempty" yaml:"empty_text_as_null,omitempty"`

	// ExactSchema requires the destination column list to equal Required.
	ExactSchema bool `json:"exact_schema,omitempty" yaml:"exact_schema,omitempty"`

	// KeepEmptyRows loads records whose cells are all empty (",,") as rows of
	// NULLs and empty strings instead of skipping them.
	KeepEmptyRows bool `json:"keep_empty_rows,omitempty" yaml:"keep_empty_rows,omitempty"`
}

// TableID parses Job.Table.
func (j Job) TableID() (TableID, error) { return ParseTable(j.Table) }

// SourceFormat returns the normalized format, defaulting to csv.
func (j Job) SourceFormat() string {
	f := strings.ToLower(strings.TrimSpace(j.Format))
	if f == "" {
		return FormatCSV
	}
	return f
}

// File is the top-level object of a jobs file.
type File struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// Alias maps one normalized sheet label to a destination column.
type Alias struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// AliasTable is an ordered alias list. It decodes from either an object
// ({"город": "city"}) or a list ([{"from": "город", "to": "city"}]).
type AliasTable []Alias

// UnmarshalJSON preserves object key order, which encoding/json maps drop.
func (a *AliasTable) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case nil:
		*a = nil
		return nil
	case json.Delim('['):
		var list []Alias
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*a = list
		return nil
	case json.Delim('{'):
	default:
		return fmt.Errorf("aliases: want object or array, got %v", tok)
	}

	out := AliasTable{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var to string
		if err := dec.Decode(&to); err != nil {
			return fmt.Errorf("aliases[%q]: %w", key, err)
		}
		out = append(out, Alias{From: key, To: to})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// UnmarshalYAML walks the mapping node directly to keep key order.
func (a *AliasTable) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var list []Alias
		if err := n.Decode(&list); err != nil {
			return err
		}
		*a = list
		return nil
	case yaml.MappingNode:
		out := make(AliasTable, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return fmt.Errorf("aliases[%q]: line %d: want a column name", k.Value, v.Line)
			}
			out = append(out, Alias{From: k.Value, To: v.Value})
		}
		*a = out
		return nil
	default:
		return fmt.Errorf("aliases: line %d: want mapping or sequence", n.Line)
	}
}

// LoadJobs reads a jobs file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func LoadJobs(path string) ([]Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Field: "jobs", Message: err.Error()}
	}
	defer f.Close()

	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return DecodeJobs(f, format)
}

// DecodeJobs decodes a jobs document in the given format ("json" or "yaml").
func DecodeJobs(r io.Reader, format string) ([]Job, error) {
	var file File
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && err != io.EOF {
			return nil, &ConfigError{Field: "jobs", Message: "decode yaml: " + err.Error()}
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil && err != io.EOF {
			return nil, &ConfigError{Field: "jobs", Message: "decode json: " + err.Error()}
		}
	default:
		return nil, &ConfigError{Field: "jobs", Message: fmt.Sprintf("unknown jobs file format %q", format)}
	}
	return file.Jobs, nil
}

// SelectJobs filters jobs by name. An empty filter returns all jobs; an
// unknown name is a ConfigError.
func SelectJobs(jobs []Job, names []string) ([]Job, error) {
	if len(names) == 0 {
		return jobs, nil
	}
	byName := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
	}
	out := make([]Job, 0, len(names))
	for _, n := range names {
		j, ok := byName[n]
		if !ok {
			return nil, &ConfigError{Field: "job", Message: fmt.Sprintf("no job named %q", n)}
		}
		out = append(out, j)
	}
	return out, nil
}
