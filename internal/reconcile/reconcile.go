// Package reconcile decides which destination columns receive data in a run.
//
// The rule is deliberately narrow: walk the destination schema in its own
// column order and keep a column when the input has it, the job's required
// list (if any) names it, and it is not excluded. Nothing is reordered and
// nothing is created.
package reconcile

import (
	"fmt"
	"strings"

	"sheetsync/internal/schema"
)

// LoadPlan is the ordered list of destination columns loaded this run.
type LoadPlan []schema.ColumnSpec

// Names returns the plan's column names in load order.
func (p LoadPlan) Names() []string { return schema.Names(p) }

// NoColumnOverlapError is returned when the plan would be empty.
type NoColumnOverlapError struct {
	Input    []string // normalized input headers
	Schema   []string // destination columns
	Required []string
	Excluded []string
}

func (e *NoColumnOverlapError) Error() string {
	var b strings.Builder
	b.WriteString("reconcile: no input column matches the destination")
	fmt.Fprintf(&b, "; destination=%v input=%v", e.Schema, e.Input)
	if len(e.Required) > 0 {
		fmt.Fprintf(&b, " required=%v", e.Required)
	}
	if len(e.Excluded) > 0 {
		fmt.Fprintf(&b, " excluded=%v", e.Excluded)
	}
	return b.String()
}

// Reconcile computes the LoadPlan. It is pure.
func Reconcile(input []string, cols []schema.ColumnSpec, required, excluded []string) (LoadPlan, error) {
	in := set(input)
	req := set(required)
	ex := set(excluded)

	plan := make(LoadPlan, 0, len(cols))
	for _, c := range cols {
		if _, ok := in[c.Name]; !ok {
			continue
		}
		if len(req) > 0 {
			if _, ok := req[c.Name]; !ok {
				continue
			}
		}
		if _, ok := ex[c.Name]; ok {
			continue
		}
		plan = append(plan, c)
	}
	if len(plan) == 0 {
		return nil, &NoColumnOverlapError{
			Input:    input,
			Schema:   schema.Names(cols),
			Required: required,
			Excluded: excluded,
		}
	}
	return plan, nil
}

// Index returns, for each plan column, its position in input. When several
// input headers carry the same name the first one wins; later duplicates are
// ignored. Every plan column must be present in input.
func Index(input []string, plan LoadPlan) []int {
	first := make(map[string]int, len(input))
	for i, h := range input {
		if _, seen := first[h]; !seen {
			first[h] = i
		}
	}
	idx := make([]int, len(plan))
	for i, c := range plan {
		pos, ok := first[c.Name]
		if !ok {
			panic(fmt.Sprintf("reconcile: plan column %q not in input", c.Name))
		}
		idx[i] = pos
	}
	return idx
}

// Duplicates reports input headers that occur more than once, in first-seen
// order. Callers log them since only the first occurrence is loaded.
func Duplicates(input []string) []string {
	seen := make(map[string]int, len(input))
	var out []string
	for _, h := range input {
		seen[h]++
		if seen[h] == 2 {
			out = append(out, h)
		}
	}
	return out
}

// SchemaMismatchError is returned by CheckExact.
type SchemaMismatchError struct {
	Expected []string
	Found    []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("reconcile: destination columns %v do not match expected %v", e.Found, e.Expected)
}

// CheckExact verifies that the destination's columns are exactly expected,
// in order. Jobs with a fixed contract use it to refuse drifted tables.
func CheckExact(cols []schema.ColumnSpec, expected []string) error {
	found := schema.Names(cols)
	if len(found) != len(expected) {
		return &SchemaMismatchError{Expected: expected, Found: found}
	}
	for i := range found {
		if found[i] != expected[i] {
			return &SchemaMismatchError{Expected: expected, Found: found}
		}
	}
	return nil
}

func set(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}
