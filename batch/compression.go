package batch

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdCodec hands out pooled zstd encoders and decoders
type zstdCodec struct {
	level       zstd.EncoderLevel
	encoderPool sync.Pool
	decoderPool sync.Pool
}

var streamCodec = &zstdCodec{level: zstd.SpeedFastest}

// compress returns a WriteCloser that compresses data written to it
func (c *zstdCodec) compress(w io.Writer) (io.WriteCloser, error) {
	if enc, ok := c.encoderPool.Get().(*zstd.Encoder); ok {
		enc.Reset(w)
		return &pooledEncoder{enc: enc, pool: &c.encoderPool}, nil
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(c.level))
	if err != nil {
		return nil, err
	}
	return &pooledEncoder{enc: enc, pool: &c.encoderPool}, nil
}

// decompress returns a ReadCloser that decompresses data read from it
func (c *zstdCodec) decompress(r io.Reader) (io.ReadCloser, error) {
	if dec, ok := c.decoderPool.Get().(*zstd.Decoder); ok {
		if err := dec.Reset(r); err != nil {
			c.decoderPool.Put(dec)
			return nil, err
		}
		return &pooledDecoder{dec: dec, pool: &c.decoderPool}, nil
	}

	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &pooledDecoder{dec: dec, pool: &c.decoderPool}, nil
}

// pooledEncoder wraps zstd.Encoder to return it to pool on Close
type pooledEncoder struct {
	enc  *zstd.Encoder
	pool *sync.Pool
}

func (p *pooledEncoder) Write(data []byte) (int, error) {
	return p.enc.Write(data)
}

func (p *pooledEncoder) Close() error {
	err := p.enc.Close()
	p.pool.Put(p.enc)
	return err
}

// pooledDecoder wraps zstd.Decoder to return it to pool on Close
type pooledDecoder struct {
	dec  *zstd.Decoder
	pool *sync.Pool
	once sync.Once
}

func (p *pooledDecoder) Read(data []byte) (int, error) {
	return p.dec.Read(data)
}

func (p *pooledDecoder) Close() error {
	p.once.Do(func() {
		// Detach from the source before pooling
		_ = p.dec.Reset(nil)
		p.pool.Put(p.dec)
	})
	return nil
}
