// Package text implements the encoder and decoder for the bracket text
// markup: [name key=value], [[name]] for closed tags and [/name].
package text

import (
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/maxpert/tagcodec/attr"
	"github.com/maxpert/tagcodec/charset"
	"github.com/maxpert/tagcodec/length"
	"github.com/maxpert/tagcodec/markup"
)

var _ markup.Encoder = (*Encoder)(nil)

// target is an immutable snapshot of a configured encoding.
type target struct {
	name  string
	codec *charset.Codec
}

// utf8Target backs zero-value encoders and decoders.
var utf8Target = mustLookup("utf-8")

func mustLookup(name string) *target {
	t, err := lookup(name)
	if err != nil {
		panic(err)
	}
	return t
}

func loadTarget(p *atomic.Pointer[target]) *target {
	if t := p.Load(); t != nil {
		return t
	}
	return utf8Target
}

func lookup(name string) (*target, error) {
	codec, err := charset.Lookup(name)
	if err != nil {
		return nil, err
	}
	return &target{name: name, codec: codec}, nil
}

// Encoder produces text markup in a target character encoding.
//
// Calls never mutate the encoder; SetEncoding swaps the configured encoding
// atomically, so an Encoder may be shared between goroutines. The zero value
// encodes UTF-8.
type Encoder struct {
	target atomic.Pointer[target]
}

// NewEncoder returns an encoder for the named target encoding.
func NewEncoder(encoding string) (*Encoder, error) {
	e := &Encoder{}
	if err := e.SetEncoding(encoding); err != nil {
		return nil, err
	}
	return e, nil
}

// Encoding returns the configured encoding name as given to SetEncoding.
func (e *Encoder) Encoding() string {
	return loadTarget(&e.target).name
}

// SetEncoding changes the target encoding. An unknown name fails with an
// error matching charset.ErrUnsupported and leaves the encoder unchanged.
func (e *Encoder) SetEncoding(name string) error {
	t, err := lookup(name)
	if err != nil {
		return err
	}
	e.target.Store(t)
	return nil
}

func (e *Encoder) codec() *charset.Codec {
	return loadTarget(&e.target).codec
}

// StartTag serializes a start tag. Names, keys and values are written
// verbatim; values are expected to come from Attribute.
func (e *Encoder) StartTag(name []byte, attrs *attr.List, closed bool) ([]byte, error) {
	brackets := 1
	if closed {
		brackets = 2
	}

	size := length.NewCounter(len(name))
	size.Add(2 * brackets)
	it := attrs.Iter()
	for a, ok := it.Next(); ok; a, ok = it.Next() {
		size.Add(1)
		size.Add(len(a.Key))
		if a.HasValue {
			size.Add(1)
			size.Add(len(a.Value))
		}
	}
	n, err := size.Result()
	if err != nil {
		return nil, fmt.Errorf("start tag: %w", err)
	}

	out := make([]byte, 0, n)
	out = append(out, "[["[:brackets]...)
	out = append(out, name...)
	it = attrs.Iter()
	for a, ok := it.Next(); ok; a, ok = it.Next() {
		out = append(out, ' ')
		out = append(out, a.Key...)
		if a.HasValue {
			out = append(out, '=')
			out = append(out, a.Value...)
		}
	}
	out = append(out, "]]"[:brackets]...)
	return out, nil
}

// StartTagPairs builds an attribute list from pairs and serializes a start
// tag with it. Each pair holds a key and a value ([]byte or string, nil for
// a flag).
func (e *Encoder) StartTagPairs(name []byte, pairs iter.Seq2[[]any, error], closed bool) ([]byte, error) {
	attrs, err := attr.FromPairs(pairs)
	if err != nil {
		return nil, err
	}
	defer attrs.Clear()
	return e.StartTag(name, attrs, closed)
}

// EndTag serializes an end tag.
func (e *Encoder) EndTag(name []byte) ([]byte, error) {
	n, err := length.Add(len(name), 3)
	if err != nil {
		return nil, fmt.Errorf("end tag: %w", err)
	}
	out := make([]byte, 0, n)
	out = append(out, "[/"...)
	out = append(out, name...)
	return append(out, ']'), nil
}

// Name encodes v for use as a tag or attribute name.
func (e *Encoder) Name(v any) ([]byte, error) {
	return e.codec().EncodeValue(v)
}

// Attribute returns v as a double-quoted attribute value with backslashes
// and double quotes backslash-escaped. Byte input is quoted as is; any other
// value is quoted as text and then encoded.
func (e *Encoder) Attribute(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return quote(b)
	}
	q, err := quote([]byte(charset.Stringify(v)))
	if err != nil {
		return nil, err
	}
	return e.codec().Encode(string(q))
}

// Content encodes character data without escaping.
func (e *Encoder) Content(v any) ([]byte, error) {
	return e.codec().EncodeValue(v)
}

// Encode encodes an arbitrary value without escaping.
func (e *Encoder) Encode(v any) ([]byte, error) {
	return e.codec().EncodeValue(v)
}

// Escape doubles every '[' in b as "[]".
func (e *Encoder) Escape(b []byte) ([]byte, error) {
	return escape(b)
}

// EscapeText doubles every '[' in the textual form of v. The result is text,
// not encoded.
func (e *Encoder) EscapeText(v any) (string, error) {
	out, err := escape([]byte(charset.Stringify(v)))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func quote(b []byte) ([]byte, error) {
	size := length.NewCounter(len(b))
	size.Add(2)
	for _, c := range b {
		if c == '\\' || c == '"' {
			size.Add(1)
		}
	}
	n, err := size.Result()
	if err != nil {
		return nil, fmt.Errorf("attribute: %w", err)
	}

	out := make([]byte, 0, n)
	out = append(out, '"')
	for _, c := range b {
		if c == '\\' || c == '"' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return append(out, '"'), nil
}

func escape(b []byte) ([]byte, error) {
	size := length.NewCounter(len(b))
	for _, c := range b {
		if c == '[' {
			size.Add(1)
		}
	}
	n, err := size.Result()
	if err != nil {
		return nil, fmt.Errorf("escape: %w", err)
	}

	out := make([]byte, 0, n)
	for _, c := range b {
		out = append(out, c)
		if c == '[' {
			out = append(out, ']')
		}
	}
	return out, nil
}
