package charset

import (
	"fmt"
	"strings"
)

// Policy selects how a decoder handles input that is invalid in the source
// encoding.
type Policy int

const (
	// Strict fails with ErrDecode.
	Strict Policy = iota
	// Replace substitutes U+FFFD for each invalid sequence.
	Replace
	// Ignore drops invalid sequences.
	Ignore
)

// ParsePolicy maps a policy name to a Policy. The empty name means Strict.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "strict":
		return Strict, nil
	case "replace":
		return Replace, nil
	case "ignore":
		return Ignore, nil
	}
	return Strict, fmt.Errorf("%w: %q", ErrPolicy, name)
}

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Replace:
		return "replace"
	case Ignore:
		return "ignore"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}
