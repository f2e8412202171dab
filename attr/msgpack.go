package attr

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

var (
	_ msgpack.CustomEncoder = (*List)(nil)
	_ msgpack.CustomDecoder = (*List)(nil)
)

// EncodeMsgpack writes the list as an array of [key, value] pairs, with nil
// standing in for the value of a boolean attribute.
func (l *List) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(l.Len()); err != nil {
		return err
	}
	for a := range l.All() {
		if err := enc.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := enc.EncodeBytes(nonNil(a.Key)); err != nil {
			return err
		}
		if !a.HasValue {
			if err := enc.EncodeNil(); err != nil {
				return err
			}
			continue
		}
		if err := enc.EncodeBytes(nonNil(a.Value)); err != nil {
			return err
		}
	}
	return nil
}

// nonNil keeps EncodeBytes from writing a nil marker for an empty slice.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// DecodeMsgpack replaces the list contents with the pairs read from dec.
// Both str and bin values are accepted for keys and values.
func (l *List) DecodeMsgpack(dec *msgpack.Decoder) error {
	l.Clear()

	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := l.decodePair(dec, i); err != nil {
			l.Clear()
			return err
		}
	}
	return nil
}

func (l *List) decodePair(dec *msgpack.Decoder, i int) error {
	m, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if m != 2 {
		return fmt.Errorf("attr: item %d has %d elements: %w", i, m, ErrShape)
	}

	code, err := dec.PeekCode()
	if err != nil {
		return err
	}
	if code == msgpcode.Nil {
		return fmt.Errorf("attr: item %d: %w: key is nil", i, ErrType)
	}
	key, err := dec.DecodeBytes()
	if err != nil {
		return fmt.Errorf("attr: item %d key: %w", i, err)
	}
	key = nonNil(key)

	code, err = dec.PeekCode()
	if err != nil {
		return err
	}
	if code == msgpcode.Nil {
		if err := dec.DecodeNil(); err != nil {
			return err
		}
		l.AddFlag(key)
		return nil
	}

	value, err := dec.DecodeBytes()
	if err != nil {
		return fmt.Errorf("attr: item %d value: %w", i, err)
	}
	l.Add(key, nonNil(value))
	return nil
}
