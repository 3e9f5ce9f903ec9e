// Package schema reads the live column layout of a destination table and
// classifies each declared SQL type into the small set of semantic types the
// coercer understands.
package schema

import (
	"context"
	"fmt"
	"strings"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

// DeclaredType is the semantic class of a destination column.
type DeclaredType string

const (
	Date    DeclaredType = "date"
	Integer DeclaredType = "integer"
	Float   DeclaredType = "float"
	Text    DeclaredType = "text"
	Other   DeclaredType = "other"
)

// ColumnSpec is one destination column. A []ColumnSpec is always in the
// table's physical column order.
type ColumnSpec struct {
	Name     string
	Type     DeclaredType
	DataType string // as reported by the catalog
}

// Names returns the column names in order.
func Names(cols []ColumnSpec) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// NotFoundError reports a destination table with no visible columns.
type NotFoundError struct {
	Table config.TableID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("schema: table %s not found or has no visible columns", e.Table)
}

// ColumnSource is the catalog side of a destination store.
type ColumnSource interface {
	Columns(ctx context.Context, t config.TableID) ([]storage.Column, error)
}

// Read fetches and classifies the columns of t. The table is never created
// on demand: zero columns is a *NotFoundError.
func Read(ctx context.Context, src ColumnSource, t config.TableID) ([]ColumnSpec, error) {
	cols, err := src.Columns(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("schema: read columns of %s: %w", t, err)
	}
	if len(cols) == 0 {
		return nil, &NotFoundError{Table: t}
	}
	out := make([]ColumnSpec, len(cols))
	for i, c := range cols {
		out[i] = ColumnSpec{Name: c.Name, Type: Classify(c.DataType), DataType: c.DataType}
	}
	return out, nil
}

// Classify maps a catalog type name to a DeclaredType. Length and precision
// suffixes ("varchar(40)", "numeric(10,2)") are ignored.
func Classify(dataType string) DeclaredType {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimSuffix(t, " unsigned")

	switch t {
	case "date":
		return Date
	case "integer", "int", "bigint", "smallint", "tinyint", "mediumint",
		"int2", "int4", "int8", "serial", "bigserial", "smallserial":
		return Integer
	case "double precision", "double", "real", "float", "float4", "float8",
		"numeric", "decimal", "money", "smallmoney":
		return Float
	case "text", "character varying", "character", "varchar", "char", "bpchar",
		"nvarchar", "nchar", "ntext", "clob", "citext", "string":
		return Text
	}
	return Other
}
