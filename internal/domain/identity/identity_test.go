package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_Customer(t *testing.T) {
	c := NewCustomerCanonicalizer("", 0)

	tests := []struct {
		name        string
		candidates  []any
		fallbacks   []any
		want        string
		placeholder bool
	}{
		{"numeric fallback is padded", []any{nil, ""}, []any{7.0}, "CUST_0007", false},
		{"numeric string candidate is padded", []any{"7"}, nil, "CUST_0007", false},
		{"leading zeros are not doubled", []any{"007"}, nil, "CUST_0007", false},
		{"already prefixed is verbatim", []any{"cust_0042"}, []any{1.0}, "CUST_0042", false},
		{"non numeric is verbatim", []any{" abc-9 "}, nil, "ABC-9", false},
		{"decimal string is verbatim", []any{"7.5"}, nil, "7.5", false},
		{"first non-empty candidate wins", []any{"  ", "12"}, nil, "CUST_0012", false},
		{"wide numbers are not truncated", []any{"123456"}, nil, "CUST_123456", false},
		{"numeric string fallback", nil, []any{"not-a-number", "15"}, "CUST_0015", false},
		{"nothing usable", []any{nil}, []any{"abc"}, "CUST_UNKNOWN_3", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := c.Canonicalize(tt.candidates, tt.fallbacks, "tok", 3)
			assert.Equal(t, tt.want, id.String())
			assert.Equal(t, tt.placeholder, id.IsPlaceholder())
		})
	}
}

func TestCanonicalize_Placeholder(t *testing.T) {
	c := NewCustomerCanonicalizer("CUST_", 4)
	id := c.Canonicalize(nil, nil, "batch-1", 9)

	require.True(t, id.IsPlaceholder())
	assert.Equal(t, "batch-1", id.BatchToken())
	assert.Equal(t, 9, id.Row())
	assert.Equal(t, "CUST_UNKNOWN_9", id.String())
}

func TestCanonicalize_Verbatim(t *testing.T) {
	c := NewVerbatimCanonicalizer()

	assert.Equal(t, "P-001", c.Canonicalize([]any{"p-001"}, nil, "t", 0).String())
	assert.Equal(t, "42", c.Canonicalize([]any{"42"}, nil, "t", 0).String())
	assert.True(t, c.Canonicalize([]any{nil}, []any{5.0}, "t", 0).IsZero())
}

func TestFromReference(t *testing.T) {
	c := NewCustomerCanonicalizer("CUST_", 4)

	v, ok := c.FromReference("82")
	assert.True(t, ok)
	assert.Equal(t, "CUST_0082", v)

	v, ok = c.FromReference("cust_0082")
	assert.True(t, ok)
	assert.Equal(t, "CUST_0082", v)

	_, ok = c.FromReference(nil)
	assert.False(t, ok)

	assert.Equal(t, "CUST_0005", c.FromNumber(5))
}

func TestZeroPad(t *testing.T) {
	assert.Equal(t, "0007", ZeroPad(7, 4))
	assert.Equal(t, "12345", ZeroPad(12345, 4))
	assert.Equal(t, "0000", ZeroPad(0, 4))
	assert.Equal(t, "-005", ZeroPad(-5, 4))
}

func TestNumericSourceID(t *testing.T) {
	n, ok := NumericSourceID(nil, "x", 12.9)
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)

	n, ok = NumericSourceID(" 40 ")
	assert.True(t, ok)
	assert.Equal(t, int64(40), n)

	_, ok = NumericSourceID("C001", true)
	assert.False(t, ok)
}

func TestIDSet(t *testing.T) {
	s := NewIDSet("A", "", "B")
	assert.Equal(t, 2, s.Len())

	s.Add(Canonical("C"))
	s.Add(Placeholder("CUST", "tok", 1))
	s.Add(ID{})

	assert.True(t, s.Contains("C"))
	assert.False(t, s.Contains("CUST_UNKNOWN_1"))
	assert.Equal(t, []string{"A", "B", "C"}, s.Sorted())
	assert.Equal(t, []string{"A", "B"}, s.Sample(2))

	u := s.Union(NewIDSet("D"))
	assert.Equal(t, 4, u.Len())
	assert.Equal(t, 3, s.Len())
}

func TestRemap(t *testing.T) {
	m := Remap{}
	raw := int64(101)
	m.Record("P-1", &raw)
	m.Record("P-2", nil)
	m.Record("", &raw)

	v, ok := m.Lookup("101")
	assert.True(t, ok)
	assert.Equal(t, "P-1", v)
	v, _ = m.Lookup("P-2")
	assert.Equal(t, "P-2", v)
	_, ok = m.Lookup("102")
	assert.False(t, ok)

	merged := m.Merge(Remap{"101": "P-9"})
	assert.Equal(t, "P-9", merged["101"])
	assert.Equal(t, "P-1", m["101"])
}

type row struct {
	id  string
	src *int64
	tag string
}

func ptr(v int64) *int64 { return &v }

func TestDedup(t *testing.T) {
	rows := []row{
		{"B", ptr(5), "b5"},
		{"A", nil, "a-null"},
		{"A", ptr(9), "a9"},
		{"A", ptr(3), "a3"},
		{"", ptr(1), "blank"},
		{"B", ptr(5), "b5-second"},
	}

	got := Dedup(rows, func(r row) string { return r.id }, func(r row) *int64 { return r.src })

	require.Len(t, got, 2)
	assert.Equal(t, "a3", got[0].tag)
	assert.Equal(t, "b5", got[1].tag, "ties keep input order")
}

func TestDedup_Idempotent(t *testing.T) {
	rows := []row{{"X", ptr(2), "1"}, {"Y", nil, "2"}, {"X", ptr(1), "3"}}
	key := func(r row) string { return r.id }
	src := func(r row) *int64 { return r.src }

	once := Dedup(append([]row(nil), rows...), key, src)
	twice := Dedup(append([]row(nil), once...), key, src)
	assert.Equal(t, once, twice)
}
