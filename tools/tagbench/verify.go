package main

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/maxpert/tagcodec/charset"
)

// ValueMismatch describes a value whose encoding differs across instances or
// does not survive a round trip.
type ValueMismatch struct {
	Value    string
	Instance int
	Encoded  []byte
	Decoded  string
	Reason   string
}

// VerifyResult holds verification results.
type VerifyResult struct {
	Samples    int
	Matched    int
	Mismatched int
	Mismatches []ValueMismatch // first N mismatches with details
}

const maxReportedMismatches = 10

// Verifier checks that every pool instance agrees and that attribute values
// round-trip through the decoder.
type Verifier struct {
	pool    *Pool
	values  *ValueGenerator
	samples int
	rng     *rand.Rand
}

// NewVerifier creates a new Verifier.
func NewVerifier(pool *Pool, values *ValueGenerator, samples int) *Verifier {
	return &Verifier{
		pool:    pool,
		values:  values,
		samples: samples,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Verify runs the consistency check.
func (v *Verifier) Verify(ctx context.Context) (*VerifyResult, error) {
	result := &VerifyResult{
		Mismatches: make([]ValueMismatch, 0),
	}

	for i := 0; i < v.samples; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		value := v.values.Value(v.rng)
		result.Samples++
		if m, ok := v.verifyValue(value); !ok {
			result.Mismatched++
			if len(result.Mismatches) < maxReportedMismatches {
				result.Mismatches = append(result.Mismatches, m)
			}
			continue
		}
		result.Matched++
	}

	return result, nil
}

// verifyValue encodes value on every instance and decodes each result
func (v *Verifier) verifyValue(value string) (ValueMismatch, bool) {
	var reference []byte
	for i := 0; i < v.pool.Size(); i++ {
		proc := v.pool.GetByIndex(i)

		encoded, err := proc.Encoder().Attribute(value)
		if err != nil {
			return ValueMismatch{Value: value, Instance: i, Reason: err.Error()}, false
		}
		if i == 0 {
			reference = encoded
		} else if !bytes.Equal(encoded, reference) {
			return ValueMismatch{Value: value, Instance: i, Encoded: encoded, Reason: "encoded output differs from instance 0"}, false
		}

		decoded, err := proc.Decoder().Attribute(encoded, charset.Strict)
		if err != nil {
			return ValueMismatch{Value: value, Instance: i, Encoded: encoded, Reason: err.Error()}, false
		}
		if decoded != value {
			return ValueMismatch{Value: value, Instance: i, Encoded: encoded, Decoded: decoded, Reason: "round trip changed value"}, false
		}
	}
	return ValueMismatch{}, true
}

// Print prints the verification results.
func (r *VerifyResult) Print() {
	fmt.Println()
	fmt.Printf("Samples:    %d\n", r.Samples)
	fmt.Printf("Matched:    %d\n", r.Matched)
	fmt.Printf("Mismatched: %d\n", r.Mismatched)

	if len(r.Mismatches) > 0 {
		fmt.Println()
		fmt.Println("Mismatches:")
		for _, m := range r.Mismatches {
			fmt.Printf("  instance %d: %s\n", m.Instance, m.Reason)
			fmt.Printf("    value:   %q\n", m.Value)
			if m.Encoded != nil {
				fmt.Printf("    encoded: %q\n", m.Encoded)
			}
			if m.Decoded != "" {
				fmt.Printf("    decoded: %q\n", m.Decoded)
			}
		}
	}
}

// executeVerify runs the verification phase.
func executeVerify(ctx context.Context, cfg *Config) error {
	fmt.Println("╔══════════════════════════════════════════════════════╗")
	fmt.Println("║            Tagbench Verification                     ║")
	fmt.Println("╚══════════════════════════════════════════════════════╝")

	pool, err := NewPool(cfg.Encoding, cfg.Instances)
	if err != nil {
		return fmt.Errorf("failed to create codec pool: %w", err)
	}

	fmt.Printf("Encoding:    %s\n", pool.Encoding())
	fmt.Printf("Instances:   %d\n", pool.Size())
	fmt.Printf("Samples:     %d\n", cfg.VerifySamples)

	verifier := NewVerifier(pool, NewValueGenerator(pool, cfg.ValueSize), cfg.VerifySamples)
	result, err := verifier.Verify(ctx)
	if err != nil {
		return err
	}
	result.Print()

	if result.Mismatched > 0 {
		return fmt.Errorf("%d of %d values failed verification", result.Mismatched, result.Samples)
	}
	fmt.Println()
	fmt.Println("All values verified")
	return nil
}
