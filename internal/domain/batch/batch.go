// Package batch holds the raw, untyped tabular data read from one source file.
package batch

import (
	"sort"

	"github.com/google/uuid"
)

// Row maps a source-defined column name to a raw scalar.
// Values are nil (NA), string, float64 or bool.
type Row map[string]any

// Get returns the raw value of a column, nil when the column is absent
func (r Row) Get(column string) any {
	if r == nil {
		return nil
	}
	return r[column]
}

// Has reports whether the row carries the column at all
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Batch is an ordered sequence of raw rows from a single source
type Batch struct {
	Source  string
	Token   string
	Columns []string
	Rows    []Row
}

// New creates a batch with a fresh token
func New(source string, columns []string, rows []Row) *Batch {
	return &Batch{
		Source:  source,
		Token:   uuid.NewString(),
		Columns: columns,
		Rows:    rows,
	}
}

// Empty creates a batch with no columns and no rows
func Empty(source string) *Batch {
	return New(source, nil, nil)
}

// Len returns the number of rows
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// IsEmpty reports whether the batch has no rows
func (b *Batch) IsEmpty() bool {
	return b.Len() == 0
}

// HasColumn reports whether any column of the batch is named column
func (b *Batch) HasColumn(column string) bool {
	if b == nil {
		return false
	}
	for _, c := range b.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// ColumnSet returns the batch columns as a set
func (b *Batch) ColumnSet() map[string]struct{} {
	set := make(map[string]struct{})
	if b == nil {
		return set
	}
	for _, c := range b.Columns {
		set[c] = struct{}{}
	}
	return set
}

// InferColumns builds an ordered column list from the union of row keys.
// Keys of the first row keep their sorted order, later keys are appended as seen.
func InferColumns(rows []Row) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		keys := make([]string, 0, len(r))
		for k := range r {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}
