package table

import (
	"iter"

	"github.com/dns-stats/cdns/errs"
)

// Keyed is implemented by every value a Table can store: it must expose a
// structural hash for bucket lookup and a structural equality check for
// collision resolution, per spec.md §4.3 ("key equality and hashing are
// structural... collision handling is separate chaining").
type Keyed[V any] interface {
	Hash() uint32
	Equal(other V) bool
}

// Table is a deduplicating, append-only, ordered container mapping values
// to small dense 0-based indices allocated in insertion order. Equal values
// share an index.
type Table[V Keyed[V]] struct {
	values  []V
	buckets map[uint32][]int
}

// New returns an empty Table.
func New[V Keyed[V]]() *Table[V] {
	return &Table[V]{buckets: make(map[uint32][]int)}
}

// Find returns the index of a value structurally equal to v, if present.
func (t *Table[V]) Find(v V) (int, bool) {
	h := v.Hash()
	for _, idx := range t.buckets[h] {
		if t.values[idx].Equal(v) {
			return idx, true
		}
	}
	return 0, false
}

// Add inserts v only if no structurally equal value is already present,
// returning the existing index otherwise.
func (t *Table[V]) Add(v V) int {
	if idx, ok := t.Find(v); ok {
		return idx
	}
	return t.AddValue(v)
}

// AddValue appends v unconditionally. The caller is asserting v is not
// already present; use Add when that isn't known.
func (t *Table[V]) AddValue(v V) int {
	idx := len(t.values)
	t.values = append(t.values, v)
	h := v.Hash()
	t.buckets[h] = append(t.buckets[h], idx)
	return idx
}

// Get returns the value at idx, or ErrOutOfRange if idx is not valid.
func (t *Table[V]) Get(idx int) (V, error) {
	var zero V
	if idx < 0 || idx >= len(t.values) {
		return zero, errs.ErrOutOfRange
	}
	return t.values[idx], nil
}

// Size returns the number of distinct values stored.
func (t *Table[V]) Size() int {
	return len(t.values)
}

// Clear empties the table, ready for reuse by the next block.
func (t *Table[V]) Clear() {
	t.values = t.values[:0]
	t.buckets = make(map[uint32][]int)
}

// All iterates values in insertion order, paired with their index.
func (t *Table[V]) All() iter.Seq2[int, V] {
	return func(yield func(int, V) bool) {
		for i, v := range t.values {
			if !yield(i, v) {
				return
			}
		}
	}
}
