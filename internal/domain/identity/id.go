// Package identity mints canonical business identifiers and tracks the sets
// of identifiers known to a pipeline run.
package identity

import (
	"fmt"
	"strconv"
)

// ID is either a canonical business key or a batch-local placeholder.
// Placeholders are unique within their batch only and never enter an IDSet.
type ID struct {
	value       string
	placeholder bool
	batchToken  string
	row         int
}

// Canonical wraps a durable business key
func Canonical(value string) ID {
	return ID{value: value}
}

// Placeholder synthesises <PREFIX>_UNKNOWN_<row> for a row without a usable key
func Placeholder(prefix, batchToken string, row int) ID {
	return ID{
		value:       fmt.Sprintf("%s_UNKNOWN_%s", prefix, strconv.Itoa(row)),
		placeholder: true,
		batchToken:  batchToken,
		row:         row,
	}
}

// String returns the key as stored
func (id ID) String() string { return id.value }

// IsZero reports whether no identifier was produced
func (id ID) IsZero() bool { return id.value == "" }

// IsPlaceholder reports whether the id was synthesised
func (id ID) IsPlaceholder() bool { return id.placeholder }

// BatchToken returns the batch a placeholder belongs to
func (id ID) BatchToken() string { return id.batchToken }

// Row returns the batch row index a placeholder was minted for
func (id ID) Row() int { return id.row }
