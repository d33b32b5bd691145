package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var nonNumeric = regexp.MustCompile(`[^\d.\-eE]`)

// Number parses a float, stripping currency symbols and thousands separators.
// A percent sign divides the parsed value by 100.
func (n *Normalizer) Number(v any) Result[float64] {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return absent[float64]()
		}
		return valid(t)
	case bool:
		return invalid[float64](KindNumber, v, "boolean is not a number")
	}
	if IsEmptyLike(v) {
		return absent[float64]()
	}
	s, _ := rawString(v)
	s = strings.TrimSpace(s)
	percent := strings.Contains(s, "%")
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" || cleaned == "." || cleaned == "-" {
		return invalid[float64](KindNumber, v, "no numeric content")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return invalid[float64](KindNumber, v, "unparsable number "+strconv.Quote(cleaned))
	}
	if percent {
		f /= 100
	}
	return valid(f)
}

// Integer parses a number and truncates it toward zero
func (n *Normalizer) Integer(v any) Result[int64] {
	r := n.Number(v)
	if !r.Valid {
		if r.Diagnostic != nil {
			return invalid[int64](KindInteger, v, r.Diagnostic.Reason)
		}
		return absent[int64]()
	}
	if r.Value >= math.MaxInt64 || r.Value <= math.MinInt64 {
		return invalid[int64](KindInteger, v, "out of integer range")
	}
	return valid(int64(r.Value))
}

// Boolean matches the configured true/false tokens case-insensitively, then
// accepts 1.0 and 0.0. Anything else is invalid, never false.
func (n *Normalizer) Boolean(v any) Result[bool] {
	if b, ok := v.(bool); ok {
		return valid(b)
	}
	if IsEmptyLike(v) {
		return absent[bool]()
	}
	s, _ := rawString(v)
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := n.trueTokens[s]; ok {
		return valid(true)
	}
	if _, ok := n.falseTokens[s]; ok {
		return valid(false)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		switch {
		case math.Abs(f-1) < 1e-8:
			return valid(true)
		case math.Abs(f) < 1e-8:
			return valid(false)
		}
	}
	return invalid[bool](KindBoolean, v, "ambiguous boolean")
}
