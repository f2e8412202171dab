// Package batch runs streams of msgpack codec requests through an encoder and
// decoder pair.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/maxpert/tagcodec/cfg"
	"github.com/maxpert/tagcodec/charset"
	"github.com/maxpert/tagcodec/encoding"
	"github.com/maxpert/tagcodec/markup"
	"github.com/maxpert/tagcodec/telemetry"
	"github.com/rs/zerolog/log"
)

// ErrValueType is returned when a decode request carries neither bytes nor a
// string.
var ErrValueType = errors.New("decode value must be bytes or string")

// Processor executes single codec requests. It holds no per-request state and
// is safe for concurrent use when its encoder and decoder are.
type Processor struct {
	enc    markup.Encoder
	dec    markup.Decoder
	policy charset.Policy
}

// NewProcessor returns a processor that decodes with policy unless a request
// names its own.
func NewProcessor(enc markup.Encoder, dec markup.Decoder, policy charset.Policy) *Processor {
	return &Processor{enc: enc, dec: dec, policy: policy}
}

// Encoder returns the encoder requests are run against.
func (p *Processor) Encoder() markup.Encoder {
	return p.enc
}

// Decoder returns the decoder requests are run against.
func (p *Processor) Decoder() markup.Decoder {
	return p.dec
}

// Policy returns the default decode error policy.
func (p *Processor) Policy() charset.Policy {
	return p.policy
}

// Process runs one request. Failures are reported in the response.
func (p *Processor) Process(req *encoding.Request) encoding.Response {
	start := time.Now()
	resp := encoding.Response{ID: req.ID}

	var err error
	switch req.Op {
	case encoding.OpStartTag:
		resp.Data, err = p.enc.StartTag(req.Name, req.Attrs, req.Closed)
	case encoding.OpEndTag:
		resp.Data, err = p.enc.EndTag(req.Name)
	case encoding.OpName:
		resp.Data, err = p.enc.Name(req.Value)
	case encoding.OpAttribute:
		resp.Data, err = p.enc.Attribute(req.Value)
	case encoding.OpContent:
		resp.Data, err = p.enc.Content(req.Value)
	case encoding.OpEncode:
		resp.Data, err = p.enc.Encode(req.Value)
	case encoding.OpEscape:
		if b, ok := req.Value.([]byte); ok {
			resp.Data, err = p.enc.Escape(b)
		} else {
			resp.Text, err = p.enc.EscapeText(req.Value)
		}
	case encoding.OpDecode, encoding.OpDecodeAttribute:
		resp.Text, err = p.decode(req)
	default:
		err = fmt.Errorf("unknown operation %q", req.Op)
	}

	if err != nil {
		resp = encoding.Response{ID: req.ID, Error: err.Error()}
	}
	telemetry.RecordOp(string(req.Op), start, len(resp.Data)+len(resp.Text), err)
	return resp
}

func (p *Processor) decode(req *encoding.Request) (string, error) {
	policy := p.policy
	if req.Errors != "" {
		var err error
		if policy, err = charset.ParsePolicy(req.Errors); err != nil {
			return "", err
		}
	}

	var raw []byte
	switch v := req.Value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return "", fmt.Errorf("%w: got %T", ErrValueType, req.Value)
	}

	if req.Op == encoding.OpDecodeAttribute {
		return p.dec.Attribute(raw, policy)
	}
	return p.dec.Decode(raw, policy)
}

// Options control stream framing.
type Options struct {
	Compression   cfg.CompressionType
	MaxFrameBytes int
}

// OptionsFromConfig returns the stream options of the loaded configuration.
func OptionsFromConfig() Options {
	return Options{
		Compression:   cfg.Config.Batch.Compression,
		MaxFrameBytes: cfg.Config.Batch.MaxFrameBytes,
	}
}

// Stats summarizes one stream.
type Stats struct {
	Frames int
	Failed int
}

// Run reads request frames from r until end of stream, writing one response
// frame per request to w. A malformed frame or an I/O error stops the stream;
// a failing request does not. Run checks ctx between frames.
func (p *Processor) Run(ctx context.Context, r io.Reader, w io.Writer, opts Options) (stats Stats, err error) {
	telemetry.BatchStreamsActive.Inc()
	defer telemetry.BatchStreamsActive.Dec()

	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = cfg.Config.Batch.MaxFrameBytes
	}

	if opts.Compression == cfg.CompressionZstd {
		zr, zerr := streamCodec.decompress(r)
		if zerr != nil {
			return stats, fmt.Errorf("failed to open zstd input: %w", zerr)
		}
		defer zr.Close()
		r = zr

		zw, zerr := streamCodec.compress(w)
		if zerr != nil {
			return stats, fmt.Errorf("failed to open zstd output: %w", zerr)
		}
		defer func() {
			if cerr := zw.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to finish zstd output: %w", cerr)
			}
		}()
		w = zw
	}

	fr := encoding.NewFrameReader(r, opts.MaxFrameBytes)
	fw := encoding.NewFrameWriter(w)
	defer func() {
		if ferr := fw.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("failed to flush output: %w", ferr)
		}
		log.Info().
			Int("frames", stats.Frames).
			Int("failed", stats.Failed).
			Str("compression", string(opts.Compression)).
			Msg("Batch stream finished")
	}()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var req encoding.Request
		if err := fr.Read(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			telemetry.BatchFramesTotal.With("malformed").Inc()
			return stats, fmt.Errorf("frame %d: %w", stats.Frames, err)
		}

		resp := p.Process(&req)
		req.Attrs.Clear()
		stats.Frames++
		if resp.Error != "" {
			stats.Failed++
			telemetry.BatchFramesTotal.With("failed").Inc()
			log.Debug().
				Uint64("id", req.ID).
				Str("op", string(req.Op)).
				Str("error", resp.Error).
				Msg("Batch request failed")
		} else {
			telemetry.BatchFramesTotal.With("success").Inc()
		}

		if err := fw.Write(&resp); err != nil {
			return stats, fmt.Errorf("frame %d: %w", stats.Frames-1, err)
		}
	}
}
