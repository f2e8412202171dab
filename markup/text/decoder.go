package text

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/maxpert/tagcodec/charset"
	"github.com/maxpert/tagcodec/length"
	"github.com/maxpert/tagcodec/markup"
)

var _ markup.Decoder = (*Decoder)(nil)

// Decoder reads text markup input in a source character encoding. Like
// Encoder it is safe for concurrent use, and the zero value decodes UTF-8.
type Decoder struct {
	target atomic.Pointer[target]
}

// NewDecoder returns a decoder for the named source encoding.
func NewDecoder(encoding string) (*Decoder, error) {
	d := &Decoder{}
	if err := d.SetEncoding(encoding); err != nil {
		return nil, err
	}
	return d, nil
}

// Encoding returns the configured encoding name as given to SetEncoding.
func (d *Decoder) Encoding() string {
	return loadTarget(&d.target).name
}

// SetEncoding changes the source encoding. An unknown name fails with an
// error matching charset.ErrUnsupported and leaves the decoder unchanged.
func (d *Decoder) SetEncoding(name string) error {
	t, err := lookup(name)
	if err != nil {
		return err
	}
	d.target.Store(t)
	return nil
}

// Normalize returns name unchanged. Text markup names are case-sensitive.
func (d *Decoder) Normalize(name string) string {
	return name
}

// Decode converts b from the source encoding.
func (d *Decoder) Decode(b []byte, p charset.Policy) (string, error) {
	return loadTarget(&d.target).codec.Decode(b, p)
}

// Attribute decodes a raw attribute value. When the value starts with a
// single or double quote, the first and last characters are removed; the
// closing quote is not checked. A backslash then takes the next character
// literally. A backslash at the very end is kept.
func (d *Decoder) Attribute(b []byte, p charset.Policy) (string, error) {
	s, err := d.Decode(b, p)
	if err != nil {
		return "", err
	}
	return unescape(unquote(s))
}

func unquote(s string) string {
	if s == "" || (s[0] != '"' && s[0] != '\'') {
		return s
	}
	if utf8.RuneCountInString(s) <= 2 {
		return ""
	}
	_, last := utf8.DecodeLastRuneInString(s)
	return s[1 : len(s)-last]
}

func unescape(s string) (string, error) {
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}

	var size length.Counter
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		size.Add(1)
	}
	n, err := size.Result()
	if err != nil {
		return "", fmt.Errorf("attribute: %w", err)
	}

	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String(), nil
}
