// Package markup defines the encoder and decoder contracts shared by every
// markup flavour.
package markup

import (
	"github.com/maxpert/tagcodec/attr"
	"github.com/maxpert/tagcodec/charset"
)

// Encoder serializes tags and values into a markup's output form.
//
// Names, keys and values passed to StartTag and EndTag must already be
// encoded (and, for attribute values, quoted) for the target encoding: they
// are written verbatim.
type Encoder interface {
	// Encoding returns the target character encoding name.
	Encoding() string
	// SetEncoding changes the target character encoding.
	SetEncoding(name string) error

	StartTag(name []byte, attrs *attr.List, closed bool) ([]byte, error)
	EndTag(name []byte) ([]byte, error)

	// Name encodes a tag or attribute name.
	Name(v any) ([]byte, error)
	// Attribute quotes, escapes and encodes an attribute value.
	Attribute(v any) ([]byte, error)
	// Content encodes character data.
	Content(v any) ([]byte, error)
	// Encode encodes an arbitrary value.
	Encode(v any) ([]byte, error)
	// Escape escapes markup-significant characters in encoded content.
	Escape(b []byte) ([]byte, error)
	// EscapeText escapes markup-significant characters in text.
	EscapeText(v any) (string, error)
}

// Decoder turns raw markup input back into text.
type Decoder interface {
	// Encoding returns the source character encoding name.
	Encoding() string
	// SetEncoding changes the source character encoding.
	SetEncoding(name string) error

	// Normalize canonicalizes a tag or attribute name.
	Normalize(name string) string
	// Decode decodes an arbitrary value.
	Decode(b []byte, p charset.Policy) (string, error)
	// Attribute decodes, unquotes and unescapes a raw attribute value.
	Attribute(b []byte, p charset.Policy) (string, error)
}
