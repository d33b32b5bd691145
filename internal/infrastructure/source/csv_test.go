package source

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVReader(t *testing.T) {
	t.Run("BOM is stripped", func(t *testing.T) {
		r, err := NewCSVReader(strings.NewReader("\xEF\xBB\xBFcustomer_id,name\n1,Ana\n"))
		require.NoError(t, err)
		require.NoError(t, r.ParseHeader())
		assert.Equal(t, []string{"customer_id", "name"}, r.Headers())
		assert.Equal(t, EncodingUTF8BOM, r.Encoding())
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewCSVReader(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)

		_, err = NewCSVReader(strings.NewReader("  \n\n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("delimiter is sniffed from the header", func(t *testing.T) {
		r, err := NewCSVReader(strings.NewReader("id;name;city\n1;Ana;Porto\n"))
		require.NoError(t, err)
		assert.Equal(t, ';', r.Delimiter())

		r, err = NewCSVReader(strings.NewReader("id\tname\n1\tAna\n"))
		require.NoError(t, err)
		assert.Equal(t, '\t', r.Delimiter())
	})

	t.Run("quoted delimiters do not count", func(t *testing.T) {
		r, err := NewCSVReader(strings.NewReader("\"a;b;c\",d\n1,2\n"))
		require.NoError(t, err)
		assert.Equal(t, ',', r.Delimiter())
	})

	t.Run("explicit delimiter wins", func(t *testing.T) {
		r, err := NewCSVReader(strings.NewReader("a;b,c\n"), WithDelimiter('|'))
		require.NoError(t, err)
		assert.Equal(t, '|', r.Delimiter())
	})
}

func TestCSVReader_Encoding(t *testing.T) {
	latin := "name\ncaf\xe9\n"

	t.Run("legacy input decodes as windows-1252", func(t *testing.T) {
		r, err := NewCSVReader(strings.NewReader(latin), WithLegacyEncoding(true))
		require.NoError(t, err)
		b, err := r.ReadAll("legacy.csv", nil)
		require.NoError(t, err)
		assert.Equal(t, EncodingWindows1252, r.Encoding())
		assert.Equal(t, "café", b.Rows[0]["name"])
	})

	t.Run("legacy input is rejected without fallback", func(t *testing.T) {
		_, err := NewCSVReader(strings.NewReader(latin))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})
}

func TestValidUTF8Prefix(t *testing.T) {
	euro := []byte("€") // three bytes
	cut := append([]byte("abc"), euro[:2]...)
	assert.True(t, validUTF8Prefix(cut, true))
	assert.False(t, validUTF8Prefix(cut, false))
	assert.False(t, validUTF8Prefix([]byte("ab\xffcd"), true))
}

func TestCSVReader_ParseHeader(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader(" id ,,name,name\n"))
	require.NoError(t, err)
	require.NoError(t, r.ParseHeader())
	assert.Equal(t, []string{"id", "Unnamed: 1", "name", "name.1"}, r.Headers())
	assert.Equal(t, 1, r.CurrentRow())
}

func TestCSVReader_ReadAll(t *testing.T) {
	data := "customer_id,first_name,email\n" +
		"1,Ana,ana@example.com\n" +
		"2,,\n" +
		"3,Rui\n" +
		"4,Eva,eva@example.com,extra\n" +
		"\"5\",\"Silva, Jo\",jo@example.com\n"

	r, err := NewCSVReader(strings.NewReader(data))
	require.NoError(t, err)
	errs := NewRowErrorCollection(0)
	b, err := r.ReadAll("customers.csv", errs)
	require.NoError(t, err)

	assert.Equal(t, "customers.csv", b.Source)
	assert.NotEmpty(t, b.Token)
	assert.Equal(t, []string{"customer_id", "first_name", "email"}, b.Columns)
	require.Equal(t, 5, b.Len())
	assert.Equal(t, 5, r.TotalRows())

	assert.Equal(t, "Ana", b.Rows[0]["first_name"])
	assert.Nil(t, b.Rows[1]["first_name"], "empty cell is NA")
	assert.Nil(t, b.Rows[1]["email"])
	assert.True(t, b.Rows[2].Has("email"), "short rows carry every column")
	assert.Nil(t, b.Rows[2]["email"])
	assert.Equal(t, "eva@example.com", b.Rows[3]["email"])
	assert.Equal(t, "Silva, Jo", b.Rows[4]["first_name"])

	require.Equal(t, 1, errs.TotalCount())
	assert.Equal(t, ErrCodeExtraFields, errs.Errors()[0].Code)
	assert.Equal(t, 5, errs.Errors()[0].Row)
}

func TestCSVReader_HeaderOnly(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	b, err := r.ReadAll("x.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, b.Columns)
	assert.True(t, b.IsEmpty())

	_, _, err = r.ReadRow()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRowErrorCollection(t *testing.T) {
	c := NewRowErrorCollection(2)
	assert.False(t, c.HasErrors())
	assert.Equal(t, "no errors", c.String())

	c.Add(2, ErrCodeMalformedRow, "bare quote")
	c.Add(3, ErrCodeExtraFields, "1 field(s) beyond the header ignored")
	c.Add(9, ErrCodeMalformedRow, "bare quote")

	assert.True(t, c.HasErrors())
	assert.True(t, c.IsTruncated())
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, 3, c.TotalCount())
	assert.Equal(t, map[string]int{ErrCodeMalformedRow: 1, ErrCodeExtraFields: 1}, c.Summary())
	assert.Contains(t, c.String(), "3 error(s) found (showing first 2)")
	assert.Equal(t, "row 2: bare quote", c.Errors()[0].Error())
}
