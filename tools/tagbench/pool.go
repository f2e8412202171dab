package main

import (
	"fmt"
	"sync/atomic"

	"github.com/maxpert/tagcodec/batch"
	"github.com/maxpert/tagcodec/charset"
	"github.com/maxpert/tagcodec/markup/text"
)

// Pool holds codec instances shared by all workers with round-robin distribution.
type Pool struct {
	procs   []*batch.Processor
	codec   *charset.Codec
	counter uint64
}

// NewPool creates size encoder/decoder pairs for the named encoding.
func NewPool(encoding string, size int) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1")
	}

	codec, err := charset.Lookup(encoding)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		procs: make([]*batch.Processor, size),
		codec: codec,
	}

	for i := range p.procs {
		enc, err := text.NewEncoder(encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to create encoder %d: %w", i, err)
		}
		dec, err := text.NewDecoder(encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to create decoder %d: %w", i, err)
		}
		p.procs[i] = batch.NewProcessor(enc, dec, charset.Strict)
	}

	return p, nil
}

// Get returns a processor using round-robin selection.
func (p *Pool) Get() *batch.Processor {
	idx := atomic.AddUint64(&p.counter, 1) % uint64(len(p.procs))
	return p.procs[idx]
}

// GetByIndex returns a specific processor by index.
func (p *Pool) GetByIndex(idx int) *batch.Processor {
	return p.procs[idx%len(p.procs)]
}

// Size returns the number of instances in the pool.
func (p *Pool) Size() int {
	return len(p.procs)
}

// Encoding returns the canonical name of the pool's encoding.
func (p *Pool) Encoding() string {
	return p.procs[0].Encoder().Encoding()
}

// Represents reports whether s can be encoded by the pool's encoding.
func (p *Pool) Represents(s string) bool {
	_, err := p.codec.Encode(s)
	return err == nil
}
