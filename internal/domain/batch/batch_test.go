package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	b := New("a.csv", []string{"x"}, []Row{{"x": "1"}})
	assert.Equal(t, "a.csv", b.Source)
	assert.NotEmpty(t, b.Token)
	assert.Equal(t, 1, b.Len())
	assert.False(t, b.IsEmpty())

	other := New("a.csv", nil, nil)
	assert.NotEqual(t, b.Token, other.Token)
	assert.True(t, other.IsEmpty())
}

func TestBatch_NilSafe(t *testing.T) {
	var b *Batch
	assert.Equal(t, 0, b.Len())
	assert.True(t, b.IsEmpty())
	assert.False(t, b.HasColumn("x"))
	assert.Empty(t, b.ColumnSet())
}

func TestRow_GetHas(t *testing.T) {
	r := Row{"a": nil, "b": "v"}
	assert.Nil(t, r.Get("a"))
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))
	assert.Equal(t, "v", r.Get("b"))

	var empty Row
	assert.Nil(t, empty.Get("a"))
}

func TestInferColumns(t *testing.T) {
	rows := []Row{
		{"b": 1.0, "a": "x"},
		{"a": "y", "c": true},
	}
	assert.Equal(t, []string{"a", "b", "c"}, InferColumns(rows))
	assert.Empty(t, InferColumns(nil))
}

func TestBatch_HasColumn(t *testing.T) {
	b := New("s", []string{"id", "name"}, nil)
	assert.True(t, b.HasColumn("id"))
	assert.False(t, b.HasColumn("email"))
	_, ok := b.ColumnSet()["name"]
	assert.True(t, ok)
}
