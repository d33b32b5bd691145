package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CleanString trims, drops non-printable runes, collapses whitespace runs and
// applies the case transform. Blank input is absent.
func (n *Normalizer) CleanString(v any, c Case) Result[string] {
	s, ok := rawString(v)
	if !ok {
		return absent[string]()
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return absent[string]()
	}
	return valid(applyCase(s, c))
}

// Text is CleanString that also treats empty-like tokens ("none", "null", ...) as absent
func (n *Normalizer) Text(v any, c Case) Result[string] {
	if IsEmptyLike(v) {
		return absent[string]()
	}
	return n.CleanString(v, c)
}

func applyCase(s string, c Case) string {
	switch c {
	case CaseLower:
		return strings.ToLower(s)
	case CaseUpper:
		return strings.ToUpper(s)
	case CaseTitle:
		// Casers carry state, so one is built per call
		return cases.Title(language.Und).String(s)
	default:
		return s
	}
}
