package main

import (
	"fmt"
)

// RowFilterer is the interface that any row filter needs to fulfil to
// transform a row of the de-identified table, allowing filters to be
// chained
type RowFilterer interface {
	// FilterName returns the name of the filter
	FilterName() string
	// Filter performs filtering on a row of data
	Filter(r Row) (Row, error)
}

// ProjectFilter keeps an allow-list of columns, in allow-list order
type ProjectFilter struct {
	Typer   string
	Columns []string
	colNos  []int
}

// NewProjectFilter makes a ProjectFilter from a source table's column
// names. An allowed column absent from the source is a
// ConfigurationError, so a bad allow-list fails before any output.
func NewProjectFilter(consumer string, source []string, allowed []string) (*ProjectFilter, error) {
	f := &ProjectFilter{
		Typer:   "project",
		Columns: allowed,
	}
	if len(allowed) == 0 {
		return f, &ConfigurationError{Context: "consumer " + consumer, Reason: "no columns to project"}
	}
	index := make(map[string]int, len(source))
	for i, c := range source {
		index[c] = i
	}
	for _, c := range allowed {
		i, ok := index[c]
		if !ok {
			return f, &ConfigurationError{
				Context: "consumer " + consumer,
				Column:  c,
				Reason:  "is not a de-identified column",
			}
		}
		f.colNos = append(f.colNos, i)
	}
	return f, nil
}

// Filter returns a row holding only the allowed columns
func (f ProjectFilter) Filter(r Row) (Row, error) {
	out := make([]string, len(f.colNos))
	for i, c := range f.colNos {
		if c >= len(r.Columns) {
			return r, fmt.Errorf("project filter: row from line %d is too short for column %s", r.lineNo, f.Columns[i])
		}
		out[i] = r.Columns[c]
	}
	return NewRow(out, r.lineNo), nil
}

// FilterName returns the Typer information about the ProjectFilter
func (f ProjectFilter) FilterName() string {
	return f.Typer
}

// GuardFilter refuses rows that would release an identifying column or
// that are not keyed by a pseudonym hash
type GuardFilter struct {
	Typer   string
	Columns []string
}

// NewGuardFilter makes a GuardFilter for a projected table's columns,
// the first of which must be the hash
func NewGuardFilter(consumer string, columns []string) (*GuardFilter, error) {
	ctx := "consumer " + consumer
	if len(columns) == 0 || columns[0] != colHash {
		return nil, &ConfigurationError{Context: ctx, Reason: "extract is not keyed by hash"}
	}
	ids := identifierColumns()
	for _, c := range columns[1:] {
		if ids[c] {
			return nil, &ConfigurationError{Context: ctx, Column: c, Reason: "is an identifying column"}
		}
	}
	return &GuardFilter{Typer: "guard", Columns: columns}, nil
}

// Filter checks the row shape and its hash key
func (f GuardFilter) Filter(r Row) (Row, error) {
	if len(r.Columns) != len(f.Columns) {
		return r, fmt.Errorf("guard filter: row from line %d has %d columns, want %d", r.lineNo, len(r.Columns), len(f.Columns))
	}
	if !isDigest(r.Columns[0]) {
		return r, fmt.Errorf("guard filter: row from line %d is not keyed by a hash", r.lineNo)
	}
	return r, nil
}

// FilterName returns the Typer information about the GuardFilter
func (f GuardFilter) FilterName() string {
	return f.Typer
}

// isDigest reports whether s is a lowercase hex HMAC-SHA-256 digest
func isDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Partition projects every de-identified record onto a consumer's
// allow-list, keyed by hash. No rows are filtered out. schema is the
// ordered list of de-identified columns, excluding the hash.
func Partition(records []DeidentifiedRecord, schema []string, view ConsumerView) (*Table, error) {
	source := append([]string{colHash}, schema...)
	project, err := NewProjectFilter(view.Name, source, append([]string{colHash}, view.Columns...))
	if err != nil {
		return nil, err
	}
	guard, err := NewGuardFilter(view.Name, project.Columns)
	if err != nil {
		return nil, err
	}
	filters := []RowFilterer{project, guard}

	table, err := NewTable(view.Name, project.Columns)
	if err != nil {
		return nil, err
	}

	for i, rec := range records {
		cols := make([]string, len(source))
		for j, c := range source {
			v, ok := rec.Value(c)
			if !ok {
				return nil, fmt.Errorf("record %s has no column %s", rec.Hash, c)
			}
			cols[j] = v
		}
		row := NewRow(cols, i+1)
		for _, f := range filters {
			row, err = f.Filter(row)
			if err != nil {
				return nil, fmt.Errorf("filter %s error on consumer %s: %w", f.FilterName(), view.Name, err)
			}
		}
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}
