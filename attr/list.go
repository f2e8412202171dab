// Package attr implements the append-only attribute list that is filled while
// a start tag is being built and consumed by the markup encoders.
//
// Storage is a chain of fixed-size chunks. The first chunk lives inline in the
// List, so a tag with up to ChunkSize attributes costs a single allocation,
// and growing never moves attributes that were already added.
//
// Ownership: the list keeps the key and value slices it is given without
// copying them. Callers must not modify a slice after handing it to the list.
package attr

import (
	"errors"
	"fmt"
	"iter"
)

// ChunkSize is the number of attribute slots per chunk.
const ChunkSize = 5

var (
	// ErrType is returned when a key or value is not byte-representable.
	ErrType = errors.New("expected bytes")
	// ErrShape is returned when a pair does not hold exactly two elements.
	ErrShape = errors.New("expected pairs of length exactly 2")
)

// Attr is a single key/value pair. HasValue is false for boolean attributes,
// which are distinct from attributes with an empty value.
type Attr struct {
	Key      []byte
	Value    []byte
	HasValue bool
}

type chunk struct {
	next  *chunk
	attrs [ChunkSize]Attr
	n     int
}

// List is an ordered sequence of attributes. The zero value is an empty list
// ready to use, and a nil *List reads as empty as well.
//
// A List must not be copied after first use. Appending while an Iterator over
// the same list is in use is not supported.
type List struct {
	first chunk
	last  *chunk
	len   int
}

// New returns an empty list.
func New() *List {
	return &List{}
}

// Len returns the number of attributes in the list.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return l.len
}

// Add appends an attribute with a value.
func (l *List) Add(key, value []byte) {
	l.push(Attr{Key: key, Value: value, HasValue: true})
}

// AddFlag appends a boolean attribute (key only, no value).
func (l *List) AddFlag(key []byte) {
	l.push(Attr{Key: key})
}

// AddAny appends an attribute from dynamically typed input. Keys must be
// []byte or string; values must be []byte, string or nil, where nil marks a
// boolean attribute. Nothing is appended on error.
func (l *List) AddAny(key, value any) error {
	a, err := toAttr(key, value)
	if err != nil {
		return err
	}
	l.push(a)
	return nil
}

// Append is AddAny on a list handle that may still be nil: the list is created
// on first use. The returned list must be cleared by the caller even if err is
// non-nil.
func Append(l *List, key, value any) (*List, error) {
	a, err := toAttr(key, value)
	if err != nil {
		return l, err
	}
	if l == nil {
		l = New()
	}
	l.push(a)
	return l, nil
}

func toAttr(key, value any) (Attr, error) {
	k, ok := asBytes(key)
	if !ok {
		return Attr{}, fmt.Errorf("%w: key is %T", ErrType, key)
	}
	if value == nil {
		return Attr{Key: k}, nil
	}
	v, ok := asBytes(value)
	if !ok {
		return Attr{}, fmt.Errorf("%w: value is %T", ErrType, value)
	}
	return Attr{Key: k, Value: v, HasValue: true}, nil
}

func asBytes(v any) ([]byte, bool) {
	switch x := v.(type) {
	case []byte:
		return x, true
	case string:
		return []byte(x), true
	}
	return nil, false
}

func (l *List) push(a Attr) {
	if l.last == nil {
		l.last = &l.first
	}
	c := l.last
	if c.n == ChunkSize {
		next := &chunk{}
		c.next = next
		l.last = next
		c = next
	}
	c.attrs[c.n] = a
	c.n++
	l.len++
}

// Clear drops every attribute and every chunk except the inline one.
// Clearing an empty or nil list is a no-op.
func (l *List) Clear() {
	if l == nil {
		return
	}
	c := &l.first
	for c != nil {
		next := c.next
		c.next = nil
		clear(c.attrs[:c.n])
		c.n = 0
		c = next
	}
	l.last = nil
	l.len = 0
}

// Iterator is a read-only cursor over a List.
type Iterator struct {
	cur *chunk
	idx int
}

// Iter returns a cursor positioned before the first attribute.
func (l *List) Iter() Iterator {
	if l == nil {
		return Iterator{}
	}
	return Iterator{cur: &l.first, idx: -1}
}

// Next advances the cursor. It reports false once the list is exhausted.
func (it *Iterator) Next() (Attr, bool) {
	for it.cur != nil {
		idx := it.idx + 1
		if idx >= it.cur.n {
			it.cur = it.cur.next
			it.idx = -1
			continue
		}
		it.idx = idx
		return it.cur.attrs[idx], true
	}
	return Attr{}, false
}

// All returns an iterator over the attributes in insertion order.
func (l *List) All() iter.Seq[Attr] {
	return func(yield func(Attr) bool) {
		it := l.Iter()
		for a, ok := it.Next(); ok; a, ok = it.Next() {
			if !yield(a) {
				return
			}
		}
	}
}

func (l *List) chunks() int {
	if l == nil || l.len == 0 {
		return 0
	}
	n := 0
	for c := &l.first; c != nil; c = c.next {
		n++
	}
	return n
}
