package encoding

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/maxpert/tagcodec/attr"
)

// Op names a single codec operation carried by a Request.
type Op string

const (
	OpStartTag        Op = "starttag"
	OpEndTag          Op = "endtag"
	OpName            Op = "name"
	OpAttribute       Op = "attribute"
	OpContent         Op = "content"
	OpEncode          Op = "encode"
	OpEscape          Op = "escape"
	OpDecode          Op = "decode"
	OpDecodeAttribute Op = "decode_attribute"
)

// Ops lists every known operation.
var Ops = []Op{
	OpStartTag, OpEndTag, OpName, OpAttribute, OpContent,
	OpEncode, OpEscape, OpDecode, OpDecodeAttribute,
}

// Valid reports whether op is a known operation.
func (op Op) Valid() bool {
	for _, o := range Ops {
		if o == op {
			return true
		}
	}
	return false
}

// Request is one codec call. Name is used by the tag operations; Value holds
// the operand of every other operation and is either []byte (already
// encoded) or any msgpack scalar, which the codec stringifies.
type Request struct {
	ID     uint64     `msgpack:"id"`
	Op     Op         `msgpack:"op"`
	Name   []byte     `msgpack:"name,omitempty"`
	Attrs  *attr.List `msgpack:"attrs,omitempty"`
	Closed bool       `msgpack:"closed,omitempty"`
	Value  any        `msgpack:"value"`
	Errors string     `msgpack:"errors,omitempty"`
}

// Response answers the Request with the same ID. Exactly one of Data, Text
// or Error is meaningful: decode operations fill Text, escape of a text
// value fills Text, everything else fills Data.
type Response struct {
	ID    uint64 `msgpack:"id"`
	Data  []byte `msgpack:"data,omitempty"`
	Text  string `msgpack:"text,omitempty"`
	Error string `msgpack:"error,omitempty"`
}

// frameHeaderSize is the length prefix of every frame.
const frameHeaderSize = 4

// ErrFrameTooLarge is returned when a frame exceeds the reader's limit.
var ErrFrameTooLarge = errors.New("frame too large")

// FrameWriter writes length-prefixed msgpack frames.
type FrameWriter struct {
	w *bufio.Writer
}

// NewFrameWriter returns a buffered frame writer; call Flush when done.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: bufio.NewWriter(w)}
}

// Write marshals v and writes it as one frame.
func (fw *FrameWriter) Write(v interface{}) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	if uint64(len(data)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	var hdr [frameHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(data)))
	if _, err := fw.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = fw.w.Write(data)
	return err
}

// Flush writes any buffered frames to the underlying writer.
func (fw *FrameWriter) Flush() error {
	return fw.w.Flush()
}

// FrameReader reads length-prefixed msgpack frames.
type FrameReader struct {
	r   *bufio.Reader
	max int
	buf []byte
}

// NewFrameReader returns a reader that rejects frames larger than max bytes.
func NewFrameReader(r io.Reader, max int) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r), max: max}
}

// Read decodes the next frame into v. It returns io.EOF at a clean end of
// stream and io.ErrUnexpectedEOF when a frame is cut short.
func (fr *FrameReader) Read(v interface{}) error {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return err
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if uint64(n) > uint64(fr.max) {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, n, fr.max)
	}

	if cap(fr.buf) < int(n) {
		fr.buf = make([]byte, n)
	}
	fr.buf = fr.buf[:n]
	if _, err := io.ReadFull(fr.r, fr.buf); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	// Only a header read at a frame boundary may report io.EOF
	if err := Unmarshal(fr.buf, v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: frame body of %d bytes holds no complete value", io.ErrUnexpectedEOF, n)
		}
		return err
	}
	return nil
}
