package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erp/unify/internal/domain/shared"
)

// Row-level error codes
const (
	ErrCodeMalformedRow    = "ERR_SOURCE_MALFORMED_ROW"
	ErrCodeExtraFields     = "ERR_SOURCE_EXTRA_FIELDS"
	ErrCodeMalformedRecord = "ERR_SOURCE_MALFORMED_RECORD"
)

var (
	// ErrEmptyFile is returned when a raw file has no content
	ErrEmptyFile = errors.New("raw file is empty")

	// ErrInvalidEncoding is returned when the content is not UTF-8 and no
	// legacy fallback is enabled
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrMissingHeader is returned when a CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrUnsupportedFormat is returned for extensions and JSON shapes the loader does not read
	ErrUnsupportedFormat = fmt.Errorf("raw file: %w", shared.ErrUnsupportedFormat)
)

// RowError is a parse failure of a single row or record
type RowError struct {
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// DefaultMaxRowErrors bounds how many row errors are kept in detail
const DefaultMaxRowErrors = 100

// RowErrorCollection keeps the first maxErrors row errors and counts the rest
type RowErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewRowErrorCollection creates a collection; maxErrors <= 0 uses DefaultMaxRowErrors
func NewRowErrorCollection(maxErrors int) *RowErrorCollection {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxRowErrors
	}
	return &RowErrorCollection{maxErrors: maxErrors}
}

// Add records an error
func (c *RowErrorCollection) Add(row int, code, message string) {
	c.totalCount++
	if len(c.errors) < c.maxErrors {
		c.errors = append(c.errors, RowError{Row: row, Code: code, Message: message})
	}
}

// Errors returns the kept errors
func (c *RowErrorCollection) Errors() []RowError {
	return c.errors
}

// Count returns the number of kept errors
func (c *RowErrorCollection) Count() int {
	return len(c.errors)
}

// TotalCount includes errors beyond the limit
func (c *RowErrorCollection) TotalCount() int {
	return c.totalCount
}

func (c *RowErrorCollection) HasErrors() bool {
	return c.totalCount > 0
}

func (c *RowErrorCollection) IsTruncated() bool {
	return c.totalCount > c.maxErrors
}

// Summary counts the kept errors by code
func (c *RowErrorCollection) Summary() map[string]int {
	summary := make(map[string]int)
	for _, err := range c.errors {
		summary[err.Code]++
	}
	return summary
}

func (c *RowErrorCollection) String() string {
	if !c.HasErrors() {
		return "no errors"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", c.totalCount)
	if c.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", c.maxErrors)
	}
	sb.WriteString(":\n")
	for _, err := range c.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
