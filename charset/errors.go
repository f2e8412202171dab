package charset

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrUnsupported is returned for encoding names no index or registration knows.
	ErrUnsupported = errors.New("unsupported encoding")
	// ErrEncode is returned when a character has no form in the target encoding.
	ErrEncode = errors.New("character not representable")
	// ErrDecode is returned for invalid input bytes under the Strict policy.
	ErrDecode = errors.New("invalid byte sequence")
	// ErrPolicy is returned by ParsePolicy for an unknown policy name.
	ErrPolicy = errors.New("unknown error policy")
)

// Error describes a failed character conversion. Offset is the byte offset
// of the offending input, or -1 when the underlying codec does not report it.
type Error struct {
	Op       string
	Encoding string
	Offset   int
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("charset: ")
	b.WriteString(e.Op)
	if e.Encoding != "" {
		b.WriteByte(' ')
		b.WriteString(e.Encoding)
	}
	if e.Offset >= 0 {
		b.WriteString(" at offset ")
		b.WriteString(strconv.Itoa(e.Offset))
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
