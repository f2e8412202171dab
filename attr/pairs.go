package attr

import (
	"fmt"
	"iter"
)

// FromPairs builds a list from a sequence of items that must each hold exactly
// two elements: key and value (nil for a boolean attribute). An error yielded
// by the sequence aborts the build and is returned wrapped.
//
// An empty sequence yields a nil list. On any failure the partially built
// list is cleared and nil is returned.
func FromPairs(items iter.Seq2[[]any, error]) (*List, error) {
	var l *List
	i := 0
	for item, err := range items {
		if err != nil {
			l.Clear()
			return nil, fmt.Errorf("attr: item %d: %w", i, err)
		}
		if len(item) != 2 {
			l.Clear()
			return nil, fmt.Errorf("attr: item %d has %d elements: %w", i, len(item), ErrShape)
		}
		if l, err = Append(l, item[0], item[1]); err != nil {
			l.Clear()
			return nil, fmt.Errorf("attr: item %d: %w", i, err)
		}
		i++
	}
	return l, nil
}

// FromSlice is FromPairs over an in-memory slice of pairs.
func FromSlice(items [][]any) (*List, error) {
	return FromPairs(Pairs(items))
}

// Pairs adapts a slice of pairs to the sequence type FromPairs consumes.
func Pairs(items [][]any) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}
