package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type strVal string

func (s strVal) Hash() uint32 {
	return NewHasher().String(string(s)).Sum()
}

func (s strVal) Equal(other strVal) bool {
	return s == other
}

// =============================================================================
// Table Tests
// =============================================================================

func TestTable_AddDeduplicates(t *testing.T) {
	tbl := New[strVal]()

	i1 := tbl.Add("8.8.8.8")
	i2 := tbl.Add("1.1.1.1")
	i3 := tbl.Add("8.8.8.8")

	assert.Equal(t, i1, i3, "equal values must share an index")
	assert.NotEqual(t, i1, i2)
	assert.Equal(t, 2, tbl.Size())
}

func TestTable_Find(t *testing.T) {
	tbl := New[strVal]()
	tbl.Add("a")

	idx, ok := tbl.Find("a")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = tbl.Find("missing")
	assert.False(t, ok)
}

func TestTable_AddValueAppendsUnconditionally(t *testing.T) {
	tbl := New[strVal]()

	i1 := tbl.AddValue("a")
	i2 := tbl.AddValue("a")

	assert.NotEqual(t, i1, i2, "AddValue must not dedupe")
	assert.Equal(t, 2, tbl.Size())
}

func TestTable_Get(t *testing.T) {
	tbl := New[strVal]()
	tbl.Add("a")
	tbl.Add("b")

	v, err := tbl.Get(1)
	require.NoError(t, err)
	assert.Equal(t, strVal("b"), v)
}

func TestTable_Get_OutOfRange(t *testing.T) {
	tbl := New[strVal]()
	tbl.Add("a")

	_, err := tbl.Get(5)
	assert.Error(t, err)

	_, err = tbl.Get(-1)
	assert.Error(t, err)
}

func TestTable_Clear(t *testing.T) {
	tbl := New[strVal]()
	tbl.Add("a")
	tbl.Add("b")

	tbl.Clear()

	assert.Equal(t, 0, tbl.Size())
	idx := tbl.Add("a")
	assert.Equal(t, 0, idx, "indices restart from zero after Clear")
}

func TestTable_All_InsertionOrder(t *testing.T) {
	tbl := New[strVal]()
	tbl.Add("c")
	tbl.Add("a")
	tbl.Add("b")

	var got []string
	for i, v := range tbl.All() {
		assert.Equal(t, len(got), i)
		got = append(got, string(v))
	}

	assert.Equal(t, []string{"c", "a", "b"}, got)
}

// =============================================================================
// Hasher Tests
// =============================================================================

func TestHasher_EqualInputsEqualHash(t *testing.T) {
	h1 := NewHasher().Uint64(42).String("x").Sum()
	h2 := NewHasher().Uint64(42).String("x").Sum()

	assert.Equal(t, h1, h2)
}

func TestHasher_AbsentDistinguishesFromZero(t *testing.T) {
	present := NewHasher().Uint32(0).Sum()
	absent := NewHasher().Absent().Sum()

	assert.NotEqual(t, present, absent)
}

func TestHasher_FieldOrderMatters(t *testing.T) {
	h1 := NewHasher().Uint8(1).Uint8(2).Sum()
	h2 := NewHasher().Uint8(2).Uint8(1).Sum()

	assert.NotEqual(t, h1, h2)
}
