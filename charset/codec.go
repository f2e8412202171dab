package charset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

type kind uint8

const (
	kindUTF8 kind = iota
	kindASCII
	kindCharmap
	kindGeneric
)

// Codec converts text to and from a single character encoding.
// A Codec is immutable and safe for concurrent use.
//
// Text is always Go UTF-8. Single-byte and UTF-8 encodings are converted
// rune by rune so errors carry a byte offset; every other encoding goes
// through its golang.org/x/text transformer.
type Codec struct {
	key  string
	name string
	kind kind
	cmap *charmap.Charmap
	enc  encoding.Encoding
}

func newCodec(key, name string, enc encoding.Encoding) *Codec {
	c := &Codec{key: key, name: name, enc: enc, kind: kindGeneric}
	switch {
	case strings.EqualFold(name, "UTF-8"):
		c.kind = kindUTF8
	case strings.EqualFold(name, "US-ASCII"):
		c.kind = kindASCII
	default:
		if cm, ok := enc.(*charmap.Charmap); ok {
			c.kind = kindCharmap
			c.cmap = cm
		}
	}
	return c
}

// Name returns the canonical name of the encoding.
func (c *Codec) Name() string {
	return c.name
}

// Encode converts s to the codec's encoding. Characters the encoding cannot
// represent, and invalid UTF-8 in s, fail with ErrEncode.
func (c *Codec) Encode(s string) ([]byte, error) {
	switch c.kind {
	case kindUTF8:
		if i := invalidAt(s); i >= 0 {
			return nil, c.fail("encode", i, ErrEncode)
		}
		return []byte(s), nil

	case kindASCII:
		for i := 0; i < len(s); i++ {
			if s[i] >= utf8.RuneSelf {
				return nil, c.fail("encode", i, ErrEncode)
			}
		}
		return []byte(s), nil

	case kindCharmap:
		out := make([]byte, utf8.RuneCountInString(s))
		j := 0
		for i, r := range s {
			if r == utf8.RuneError {
				if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
					return nil, c.fail("encode", i, ErrEncode)
				}
			}
			b, ok := c.cmap.EncodeRune(r)
			if !ok {
				return nil, c.fail("encode", i, ErrEncode)
			}
			out[j] = b
			j++
		}
		return out, nil
	}

	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, c.fail("encode", -1, fmt.Errorf("%w: %v", ErrEncode, err))
	}
	return out, nil
}

// EncodeValue returns v unchanged when it is already []byte, and otherwise
// encodes the textual form of v.
func (c *Codec) EncodeValue(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return c.Encode(Stringify(v))
}

// Decode converts b from the codec's encoding to text, handling invalid input
// according to p.
func (c *Codec) Decode(b []byte, p Policy) (string, error) {
	switch c.kind {
	case kindUTF8:
		return c.decodeUTF8(b, p)
	case kindASCII:
		return c.decodeSingle(b, p, decodeASCII)
	case kindCharmap:
		return c.decodeSingle(b, p, c.cmap.DecodeByte)
	}

	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", c.fail("decode", -1, fmt.Errorf("%w: %v", ErrDecode, err))
	}
	s := string(out)
	if !strings.ContainsRune(s, utf8.RuneError) || c.roundTrips(out, b) {
		return s, nil
	}
	switch p {
	case Strict:
		return "", c.fail("decode", -1, ErrDecode)
	case Ignore:
		return strings.ReplaceAll(s, string(utf8.RuneError), ""), nil
	}
	return s, nil
}

// roundTrips reports whether decoded re-encodes to exactly src, in which case
// every U+FFFD in decoded was present in the input.
func (c *Codec) roundTrips(decoded, src []byte) bool {
	again, err := c.enc.NewEncoder().Bytes(decoded)
	return err == nil && bytes.Equal(again, src)
}

func (c *Codec) decodeUTF8(b []byte, p Policy) (string, error) {
	if utf8.Valid(b) {
		return string(b), nil
	}

	var sb strings.Builder
	sb.Grow(len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			switch p {
			case Strict:
				return "", c.fail("decode", i, ErrDecode)
			case Replace:
				sb.WriteRune(utf8.RuneError)
			}
			i++
			continue
		}
		sb.Write(b[i : i+size])
		i += size
	}
	return sb.String(), nil
}

func (c *Codec) decodeSingle(b []byte, p Policy, dec func(byte) rune) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))
	for i, x := range b {
		r := dec(x)
		if r == utf8.RuneError {
			switch p {
			case Strict:
				return "", c.fail("decode", i, ErrDecode)
			case Ignore:
				continue
			}
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

func decodeASCII(b byte) rune {
	if b >= utf8.RuneSelf {
		return utf8.RuneError
	}
	return rune(b)
}

func (c *Codec) fail(op string, offset int, err error) error {
	return &Error{Op: op, Encoding: c.name, Offset: offset, Err: err}
}

// invalidAt returns the offset of the first invalid UTF-8 sequence in s, or -1.
func invalidAt(s string) int {
	if utf8.ValidString(s) {
		return -1
	}
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
