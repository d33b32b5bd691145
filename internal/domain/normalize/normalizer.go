package normalize

import (
	"strconv"
	"strings"
	"time"
)

// Case selects the case transform applied by CleanString
type Case int

const (
	CaseNone Case = iota
	CaseLower
	CaseUpper
	CaseTitle
)

// DefaultTrueTokens are the lowercase tokens read as true
var DefaultTrueTokens = []string{"true", "yes", "1", "active", "completed", "delivered", "t"}

// DefaultFalseTokens are the lowercase tokens read as false
var DefaultFalseTokens = []string{"false", "no", "0", "inactive", "failed", "pending", "cancelled", "returned", "f"}

// DefaultDateLayouts are tried in order before the permissive parser
var DefaultDateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"2 Jan 2006",
}

var emptyTokens = map[string]struct{}{
	"":     {},
	"none": {},
	"null": {},
	"na":   {},
	"nan":  {},
}

// Normalizer holds the configurable token sets and layouts.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	trueTokens  map[string]struct{}
	falseTokens map[string]struct{}
	dateLayouts []string
	location    *time.Location
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithBooleanTokens replaces the true and false token sets
func WithBooleanTokens(trueTokens, falseTokens []string) Option {
	return func(n *Normalizer) {
		n.trueTokens = tokenSet(trueTokens)
		n.falseTokens = tokenSet(falseTokens)
	}
}

// WithDateLayouts replaces the explicit date layouts
func WithDateLayouts(layouts ...string) Option {
	return func(n *Normalizer) {
		n.dateLayouts = append([]string(nil), layouts...)
	}
}

// WithLocation sets the location used for dates without a zone
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.location = loc
		}
	}
}

// New creates a Normalizer with the default token sets and layouts
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		trueTokens:  tokenSet(DefaultTrueTokens),
		falseTokens: tokenSet(DefaultFalseTokens),
		dateLayouts: append([]string(nil), DefaultDateLayouts...),
		location:    time.UTC,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return set
}

// rawString renders a raw scalar as text. ok is false for nil.
func rawString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case []byte:
		return string(t), true
	case interface{ String() string }:
		return t.String(), true
	default:
		return "", false
	}
}

// IsEmptyLike reports whether v is NA, blank or one of the empty-like tokens
func IsEmptyLike(v any) bool {
	s, ok := rawString(v)
	if !ok {
		return true
	}
	_, empty := emptyTokens[strings.ToLower(strings.TrimSpace(s))]
	return empty
}

// Stringify renders a raw scalar as text, "" for NA
func Stringify(v any) string {
	s, _ := rawString(v)
	return strings.TrimSpace(s)
}
