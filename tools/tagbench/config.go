package main

import (
	"fmt"
	"time"
)

type Config struct {
	// Codec
	Encoding  string
	Instances int

	// Run options
	Workload   string
	Operations int
	Duration   time.Duration
	Threads    int

	// Workload percentages (-1 means use workload default)
	StartTagPct  int
	EndTagPct    int
	AttributePct int
	EscapePct    int
	DecodePct    int

	// Value generation
	ValueSize int // Runes per generated value
	Attrs     int // Attributes per start tag

	// Verify options
	Verify        bool // Run verification after benchmark (for run command)
	VerifySamples int  // Number of generated values to verify (default: 1000)
}

func (c *Config) Validate() error {
	if c.Encoding == "" {
		return fmt.Errorf("encoding cannot be empty")
	}

	if c.Instances < 1 {
		return fmt.Errorf("instances must be at least 1")
	}

	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1")
	}

	if c.Operations < 0 {
		return fmt.Errorf("operations must be non-negative")
	}

	if c.ValueSize < 1 {
		return fmt.Errorf("value-size must be at least 1")
	}

	if c.Attrs < 0 {
		return fmt.Errorf("attrs must be non-negative")
	}

	if c.VerifySamples < 0 {
		return fmt.Errorf("verify-samples must be non-negative")
	}

	// Validate workload type
	switch c.Workload {
	case "mixed", "encode-only", "decode-only", "attribute-heavy":
		// valid
	case "":
		c.Workload = "mixed"
	default:
		return fmt.Errorf("invalid workload: %s (must be mixed|encode-only|decode-only|attribute-heavy)", c.Workload)
	}

	return nil
}

func (c *Config) GetWorkloadDistribution() WorkloadDistribution {
	var dist WorkloadDistribution

	// Start with defaults based on workload type
	switch c.Workload {
	case "mixed":
		dist = WorkloadDistribution{StartTag: 30, EndTag: 15, Attribute: 25, Escape: 10, Decode: 20}
	case "encode-only":
		dist = WorkloadDistribution{StartTag: 40, EndTag: 20, Attribute: 30, Escape: 10, Decode: 0}
	case "decode-only":
		dist = WorkloadDistribution{Decode: 100}
	case "attribute-heavy":
		dist = WorkloadDistribution{StartTag: 20, EndTag: 5, Attribute: 60, Escape: 5, Decode: 10}
	}

	// Override with explicit percentages if provided
	if c.StartTagPct >= 0 {
		dist.StartTag = c.StartTagPct
	}
	if c.EndTagPct >= 0 {
		dist.EndTag = c.EndTagPct
	}
	if c.AttributePct >= 0 {
		dist.Attribute = c.AttributePct
	}
	if c.EscapePct >= 0 {
		dist.Escape = c.EscapePct
	}
	if c.DecodePct >= 0 {
		dist.Decode = c.DecodePct
	}

	return dist
}

type WorkloadDistribution struct {
	StartTag  int
	EndTag    int
	Attribute int
	Escape    int
	Decode    int
}

func (w WorkloadDistribution) Total() int {
	return w.StartTag + w.EndTag + w.Attribute + w.Escape + w.Decode
}

func (w WorkloadDistribution) Validate() error {
	total := w.Total()
	if total != 100 {
		return fmt.Errorf("workload percentages must sum to 100, got %d", total)
	}
	return nil
}
