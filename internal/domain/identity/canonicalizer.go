package identity

import (
	"math"
	"strconv"
	"strings"

	"github.com/erp/unify/internal/domain/normalize"
)

const (
	CustomerPrefix = "CUST_"
	// ForeignCustomerPrefix is the client reference convention of the reconciliation export
	ForeignCustomerPrefix = "CLI_"
	ItemPrefix            = "ITM_"
	DefaultPadWidth       = 4
)

// Canonicalizer turns candidate raw id values into one canonical ID
type Canonicalizer struct {
	// Prefix is prepended to bare numeric ids, e.g. "CUST_"
	Prefix string
	// Width is the zero-pad width of numeric ids
	Width int
	// PadNumeric enables prefixing and padding of numeric ids
	PadNumeric bool
	// Placeholders enables synthesised ids for rows without a key
	Placeholders bool

	norm *normalize.Normalizer
}

// NewCustomerCanonicalizer mints CUST_0007-style ids with placeholders
func NewCustomerCanonicalizer(prefix string, width int) *Canonicalizer {
	if prefix == "" {
		prefix = CustomerPrefix
	}
	if width <= 0 {
		width = DefaultPadWidth
	}
	return &Canonicalizer{
		Prefix:       prefix,
		Width:        width,
		PadNumeric:   true,
		Placeholders: true,
		norm:         normalize.New(),
	}
}

// NewVerbatimCanonicalizer keeps the cleaned uppercase id and never synthesises one
func NewVerbatimCanonicalizer() *Canonicalizer {
	return &Canonicalizer{norm: normalize.New()}
}

// Canonicalize picks the first non-empty candidate, then the first numeric
// fallback, then a placeholder. The returned ID is zero only when
// placeholders are disabled and nothing usable was found.
func (c *Canonicalizer) Canonicalize(candidates, fallbacks []any, batchToken string, row int) ID {
	for _, raw := range candidates {
		s := c.norm.Text(raw, normalize.CaseUpper)
		if !s.Valid {
			continue
		}
		return Canonical(c.fromString(s.Value))
	}
	if c.PadNumeric {
		if n, ok := NumericSourceID(fallbacks...); ok {
			return Canonical(c.Prefix + ZeroPad(n, c.Width))
		}
	}
	if c.Placeholders {
		return Placeholder(strings.TrimSuffix(c.Prefix, "_"), batchToken, row)
	}
	return ID{}
}

func (c *Canonicalizer) fromString(s string) string {
	if !c.PadNumeric || (c.Prefix != "" && strings.HasPrefix(s, c.Prefix)) || !IsDigits(s) {
		return s
	}
	return c.Prefix + padDigits(s, c.Width)
}

// FromReference maps a bare numeric reference to prefixed form and leaves
// anything else verbatim. It never synthesises a placeholder.
func (c *Canonicalizer) FromReference(raw any) (string, bool) {
	s := c.norm.Text(raw, normalize.CaseUpper)
	if !s.Valid {
		return "", false
	}
	return c.fromString(s.Value), true
}

// FromNumber prefixes and pads an integer source id
func (c *Canonicalizer) FromNumber(n int64) string {
	return c.Prefix + ZeroPad(n, c.Width)
}

// NumericSourceID returns the first value that is a number or a purely
// numeric string, truncated to an integer.
func NumericSourceID(values ...any) (int64, bool) {
	for _, v := range values {
		switch t := v.(type) {
		case float64:
			if math.IsNaN(t) || math.IsInf(t, 0) {
				continue
			}
			return int64(t), true
		case int:
			return int64(t), true
		case int64:
			return t, true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			return int64(f), true
		}
	}
	return 0, false
}

// IsDigits reports whether s is non-empty and made only of ASCII digits
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ZeroPad renders n left-padded with zeros to width. Longer values are kept whole.
func ZeroPad(n int64, width int) string {
	if n < 0 {
		return "-" + padDigits(strconv.FormatInt(-n, 10), width-1)
	}
	return padDigits(strconv.FormatInt(n, 10), width)
}

// padDigits drops leading zeros of a digit string, then pads to width
func padDigits(digits string, width int) string {
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	if len(trimmed) >= width {
		return trimmed
	}
	return strings.Repeat("0", width-len(trimmed)) + trimmed
}
