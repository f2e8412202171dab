// Package encoding provides centralized msgpack serialization for tagcodec.
// ALL msgpack operations MUST go through this package to ensure consistent behavior.
//
// Thread Safety: Marshal, Unmarshal and the frame codecs are safe for
// concurrent use.
//
// Type Preservation: msgpack bin decodes as []byte and str as string when the
// target is interface{}. The codec treats the two differently (bytes are
// already encoded, strings are text), so loose interface decoding is never
// enabled here.
package encoding

import (
	"bytes"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// encoderPoolEntry provides pooled msgpack encoders for reduced allocations.
type encoderPoolEntry struct {
	buf *bytes.Buffer
	enc *msgpack.Encoder
}

var encoderPool = sync.Pool{
	New: func() interface{} {
		buf := new(bytes.Buffer)
		enc := msgpack.NewEncoder(buf)
		return &encoderPoolEntry{buf: buf, enc: enc}
	},
}

// Marshal encodes a value to msgpack format using a pooled encoder.
func Marshal(v interface{}) ([]byte, error) {
	entry := encoderPool.Get().(*encoderPoolEntry)
	entry.buf.Reset()

	if err := entry.enc.Encode(v); err != nil {
		encoderPool.Put(entry)
		return nil, &MarshalError{msg: "msgpack encode failed", err: err}
	}

	// Copy result before returning to pool
	result := make([]byte, entry.buf.Len())
	copy(result, entry.buf.Bytes())
	encoderPool.Put(entry)

	return result, nil
}

// Unmarshal decodes msgpack data into v.
func Unmarshal(data []byte, v interface{}) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return &MarshalError{msg: "msgpack decode failed", err: err}
	}
	return nil
}

// MarshalError represents a marshaling error.
type MarshalError struct {
	msg string
	err error
}

func (e *MarshalError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *MarshalError) Unwrap() error {
	return e.err
}
