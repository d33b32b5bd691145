package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonDigit      = regexp.MustCompile(`\D`)
	zipPlusFour   = regexp.MustCompile(`^(\d{5})[-\s]?(\d{4})$`)
	zipFive       = regexp.MustCompile(`^\d{5}$`)
	containsDigit = regexp.MustCompile(`\d`)
)

// Phone formats US numbers and passes other plausible lengths through as digits
func (n *Normalizer) Phone(v any) Result[string] {
	if IsEmptyLike(v) {
		return absent[string]()
	}
	s, _ := rawString(v)
	digits := nonDigit.ReplaceAllString(s, "")
	switch {
	case len(digits) == 10:
		return valid(fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:10]))
	case len(digits) == 11 && digits[0] == '1':
		return valid(fmt.Sprintf("+1 (%s) %s-%s", digits[1:4], digits[4:7], digits[7:11]))
	case len(digits) >= 7 && len(digits) <= 15:
		return valid(digits)
	default:
		return invalid[string](KindPhone, v, fmt.Sprintf("%d digits", len(digits)))
	}
}

// PostalCode extracts a 5-digit US code. Other digit-bearing values of at
// least 3 characters pass through unchanged.
func (n *Normalizer) PostalCode(v any) Result[string] {
	if IsEmptyLike(v) {
		return absent[string]()
	}
	s, _ := rawString(v)
	s = strings.TrimSpace(s)
	if m := zipPlusFour.FindStringSubmatch(s); m != nil {
		return valid(m[1])
	}
	if zipFive.MatchString(s) {
		return valid(s)
	}
	if head, _, found := strings.Cut(s, "."); found && zipFive.MatchString(head) {
		return valid(head)
	}
	if containsDigit.MatchString(s) && len(s) >= 3 {
		return valid(s)
	}
	return invalid[string](KindPostal, v, "not a postal code")
}
