// Package length provides overflow-checked arithmetic for output sizes.
//
// Every encoder in this module sizes its output in a first pass and allocates
// exactly once in a second pass. All sums in the first pass go through this
// package so that oversized input is rejected before anything is allocated.
package length

import (
	"errors"
	"math"
)

// Max is the largest length a buffer may have.
const Max = math.MaxInt

// ErrOverflow is returned when a length sum would exceed Max.
var ErrOverflow = errors.New("length overflow")

// Add returns a + b, or ErrOverflow if the sum is not representable.
// Both operands must be non-negative.
func Add(a, b int) (int, error) {
	if a < 0 || b < 0 {
		panic("length: negative operand")
	}
	if a > Max-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sum adds all parts, stopping at the first overflow.
func Sum(parts ...int) (int, error) {
	var c Counter
	for _, p := range parts {
		c.Add(p)
	}
	return c.Result()
}

// Counter accumulates a length. The first overflow sticks: later calls to
// Add are ignored and Result reports ErrOverflow.
//
// The zero value is an empty counter.
type Counter struct {
	n   int
	err error
}

// NewCounter returns a counter starting at n.
func NewCounter(n int) Counter {
	if n < 0 {
		panic("length: negative operand")
	}
	return Counter{n: n}
}

// Add adds k to the counter.
func (c *Counter) Add(k int) {
	if c.err != nil {
		return
	}
	c.n, c.err = Add(c.n, k)
}

// Err returns the sticky overflow error, if any.
func (c *Counter) Err() error {
	return c.err
}

// Result returns the accumulated length.
func (c *Counter) Result() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.n, nil
}
