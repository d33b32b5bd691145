package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Spreadsheet serial dates count days from this epoch
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const (
	excelSerialMin = 20000
	excelSerialMax = 80000
)

var leadingNumber = regexp.MustCompile(`^\D*(\d+)`)

// Timestamp parses a date or datetime. Numeric input between 20000 and 80000,
// native or textual, is read as a spreadsheet serial day count; other native
// numbers are invalid.
func (n *Normalizer) Timestamp(v any) Result[time.Time] {
	switch t := v.(type) {
	case time.Time:
		return valid(t)
	case float64:
		return excelSerial(t, v)
	case int:
		return excelSerial(float64(t), v)
	case int64:
		return excelSerial(float64(t), v)
	case bool:
		return invalid[time.Time](KindDate, v, "boolean is not a date")
	}
	if IsEmptyLike(v) {
		return absent[time.Time]()
	}
	s, _ := rawString(v)
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > excelSerialMin && f < excelSerialMax {
		return excelSerial(f, v)
	}

	for _, layout := range n.dateLayouts {
		if ts, err := time.ParseInLocation(layout, s, n.location); err == nil {
			return valid(ts)
		}
	}

	ts, err := dateparse.ParseIn(s, n.location, dateparse.PreferMonthFirst(!dayFirst(s)))
	if err != nil {
		return invalid[time.Time](KindDate, v, err.Error())
	}
	return valid(ts)
}

// Date is Timestamp truncated to the calendar day
func (n *Normalizer) Date(v any) Result[time.Time] {
	r := n.Timestamp(v)
	if !r.Valid {
		return r
	}
	y, m, d := r.Value.Date()
	return valid(time.Date(y, m, d, 0, 0, 0, 0, r.Value.Location()))
}

func excelSerial(f float64, raw any) Result[time.Time] {
	if math.IsNaN(f) {
		return absent[time.Time]()
	}
	if f <= excelSerialMin || f >= excelSerialMax {
		return invalid[time.Time](KindDate, raw, "number outside spreadsheet serial date range")
	}
	return valid(excelEpoch.Add(time.Duration(f * float64(24*time.Hour))))
}

// dayFirst reports whether the first numeric token can only be a day
func dayFirst(s string) bool {
	m := leadingNumber.FindStringSubmatch(s)
	if m == nil || len(m[1]) > 2 {
		return false
	}
	v, err := strconv.Atoi(m[1])
	return err == nil && v > 12 && v <= 31
}
