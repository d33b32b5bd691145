package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	ok := valid(3)
	assert.Equal(t, 3, ok.Or(7))
	require.NotNil(t, ok.Ptr())
	assert.Equal(t, 3, *ok.Ptr())
	assert.False(t, ok.Absent())

	missing := absent[int]()
	assert.Equal(t, 7, missing.Or(7))
	assert.Nil(t, missing.Ptr())
	assert.True(t, missing.Absent())

	bad := invalid[int](KindNumber, "x", "nope")
	assert.False(t, bad.Absent())
	assert.Contains(t, bad.Diagnostic.Error(), "nope")
}

func TestCleanString(t *testing.T) {
	n := New()

	tests := []struct {
		name string
		in   any
		c    Case
		want string
		ok   bool
	}{
		{"trims and collapses", "  hello \t  world ", CaseNone, "hello world", true},
		{"drops control runes", "ab\x00c​", CaseNone, "abc", true},
		{"upper", "cust_7", CaseUpper, "CUST_7", true},
		{"lower", "John@Mail.COM", CaseLower, "john@mail.com", true},
		{"title", "jOHN   smith", CaseTitle, "John Smith", true},
		{"number rendered without trailing zero", 7.0, CaseNone, "7", true},
		{"blank is absent", "   ", CaseNone, "", false},
		{"nil is absent", nil, CaseNone, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := n.CleanString(tt.in, tt.c)
			assert.Equal(t, tt.ok, r.Valid)
			if tt.ok {
				assert.Equal(t, tt.want, r.Value)
			}
		})
	}

	t.Run("Text treats empty-like tokens as absent", func(t *testing.T) {
		assert.True(t, n.Text("None", CaseUpper).Absent())
		assert.True(t, n.Text("nan", CaseUpper).Absent())
		assert.Equal(t, "NONE OF THESE", n.Text("none of these", CaseUpper).Value)
		// CleanString keeps the literal token
		assert.Equal(t, "NONE", n.CleanString("none", CaseUpper).Value)
	})
}

func TestNumber(t *testing.T) {
	n := New()

	assert.Equal(t, 1234.5, n.Number("$1,234.50").Value)
	assert.Equal(t, -3.0, n.Number(" -3 ").Value)
	assert.InDelta(t, 0.15, n.Number("15%").Value, 1e-12)
	assert.Equal(t, 2.5, n.Number(2.5).Value)
	assert.Equal(t, 1500.0, n.Number("1.5e3").Value)

	assert.True(t, n.Number("").Absent())
	assert.True(t, n.Number("NULL").Absent())
	assert.True(t, n.Number(nil).Absent())

	bad := n.Number("abc")
	assert.False(t, bad.Valid)
	require.NotNil(t, bad.Diagnostic)
	assert.Equal(t, KindNumber, bad.Diagnostic.Kind)

	assert.False(t, n.Number("1.2.3").Valid)
	assert.False(t, n.Number(true).Valid)
	assert.Equal(t, 9.99, n.Number("abc").Or(9.99))
}

func TestInteger(t *testing.T) {
	n := New()

	assert.Equal(t, int64(7), n.Integer("7").Value)
	assert.Equal(t, int64(7), n.Integer(7.9).Value)
	assert.Equal(t, int64(-2), n.Integer("-2.7").Value)
	assert.Equal(t, int64(1200), n.Integer("1,200 pts").Value)
	assert.True(t, n.Integer("na").Absent())
	assert.False(t, n.Integer("x").Valid)
	assert.Equal(t, int64(0), n.Integer("x").Or(0))
}

func TestBoolean(t *testing.T) {
	n := New()

	for _, in := range []any{"true", "YES", "1", "Active", "completed", "delivered", "t", true, 1.0, "1.0"} {
		r := n.Boolean(in)
		assert.True(t, r.Valid, "%v", in)
		assert.True(t, r.Value, "%v", in)
	}
	for _, in := range []any{"false", "No", "0", "inactive", "failed", "pending", "cancelled", "returned", "F", false, 0.0} {
		r := n.Boolean(in)
		assert.True(t, r.Valid, "%v", in)
		assert.False(t, r.Value, "%v", in)
	}

	assert.True(t, n.Boolean(nil).Absent())
	assert.True(t, n.Boolean("null").Absent())
	maybe := n.Boolean("maybe")
	assert.False(t, maybe.Valid)
	assert.Nil(t, maybe.Ptr())
	assert.False(t, n.Boolean(2.0).Valid)

	t.Run("custom tokens", func(t *testing.T) {
		custom := New(WithBooleanTokens([]string{"Y"}, []string{"N"}))
		assert.True(t, custom.Boolean("y").Value)
		assert.False(t, custom.Boolean("n").Value)
		assert.False(t, custom.Boolean("yes").Valid)
	})
}

func TestTimestamp(t *testing.T) {
	n := New()
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		in   any
		want time.Time
	}{
		{"iso date", "2023-01-15", day(2023, 1, 15)},
		{"iso datetime", "2023-01-15 10:30:00", time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"slashes ymd", "2023/01/15", day(2023, 1, 15)},
		{"month first", "01/02/2023", day(2023, 1, 2)},
		{"long month", "January 5, 2022", day(2022, 1, 5)},
		{"short month", "Mar 7, 2021", day(2021, 3, 7)},
		{"day first when first token exceeds 12", "25/12/2020", day(2020, 12, 25)},
		{"spreadsheet serial", 44927.0, day(2023, 1, 1)},
		{"spreadsheet serial int", 45000, day(2023, 3, 15)},
		{"spreadsheet serial text", "45000", day(2023, 3, 15)},
		{"spreadsheet serial text with fraction", "45000.0", day(2023, 3, 15)},
		{"spreadsheet serial text padded", " 44927 ", day(2023, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := n.Timestamp(tt.in)
			require.True(t, r.Valid, "diagnostic: %v", r.Diagnostic)
			assert.True(t, tt.want.Equal(r.Value), "got %s", r.Value)
		})
	}

	t.Run("empty-like tokens short-circuit", func(t *testing.T) {
		for _, in := range []any{nil, "", "None", "null", "NA"} {
			assert.True(t, n.Timestamp(in).Absent(), "%v", in)
		}
	})

	t.Run("numbers outside serial range are invalid", func(t *testing.T) {
		r := n.Timestamp(123.0)
		assert.False(t, r.Valid)
		require.NotNil(t, r.Diagnostic)
		assert.Equal(t, KindDate, r.Diagnostic.Kind)
	})

	t.Run("garbage is invalid", func(t *testing.T) {
		assert.False(t, n.Timestamp("not a date").Valid)
	})

	t.Run("Date truncates time of day", func(t *testing.T) {
		r := n.Date("2023-01-15 10:30:00")
		require.True(t, r.Valid)
		assert.True(t, day(2023, 1, 15).Equal(r.Value))
	})
}

func TestDayFirst(t *testing.T) {
	assert.True(t, dayFirst("25/12/2020"))
	assert.False(t, dayFirst("12/25/2020"))
	assert.False(t, dayFirst("2020-12-25"))
	assert.False(t, dayFirst("32/01/2020"))
	assert.False(t, dayFirst("no digits"))
}

func TestPhone(t *testing.T) {
	n := New()

	assert.Equal(t, "(555) 123-4567", n.Phone("555-123-4567").Value)
	assert.Equal(t, "(555) 123-4567", n.Phone(5551234567.0).Value)
	assert.Equal(t, "+1 (555) 123-4567", n.Phone("15551234567").Value)
	assert.Equal(t, "44201234567", n.Phone("+44 20 1234 567").Value)
	assert.Equal(t, "1234567", n.Phone("123-4567").Value)

	abc := n.Phone("abc")
	assert.False(t, abc.Valid)
	assert.Nil(t, abc.Ptr())
	assert.False(t, n.Phone("12345").Valid)
	assert.False(t, n.Phone("1234567890123456").Valid)
	assert.True(t, n.Phone("none").Absent())
}

func TestPostalCode(t *testing.T) {
	n := New()

	assert.Equal(t, "12345", n.PostalCode("12345-6789").Value)
	assert.Equal(t, "12345", n.PostalCode("12345 6789").Value)
	assert.Equal(t, "12345", n.PostalCode("123456789").Value)
	assert.Equal(t, "12345", n.PostalCode("12345").Value)
	assert.Equal(t, "12345", n.PostalCode("12345.0").Value)
	assert.Equal(t, "12345", n.PostalCode(12345.0).Value)
	assert.Equal(t, "SW1A 1AA", n.PostalCode("SW1A 1AA").Value)
	// digit-bearing with length >= 3 passes through
	assert.Equal(t, "1234", n.PostalCode("1234").Value)

	assert.False(t, n.PostalCode("12").Valid)
	assert.False(t, n.PostalCode("abcde").Valid)
	assert.True(t, n.PostalCode("").Absent())
}

func TestIsEmptyLike(t *testing.T) {
	for _, in := range []any{nil, "", "  ", "None", "NULL", "na", "NaN"} {
		assert.True(t, IsEmptyLike(in), "%v", in)
	}
	for _, in := range []any{"x", 0.0, false, "nonempty"} {
		assert.False(t, IsEmptyLike(in), "%v", in)
	}
}
