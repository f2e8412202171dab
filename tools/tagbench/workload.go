package main

import (
	"fmt"
	"math/rand"

	"github.com/maxpert/tagcodec/attr"
	"github.com/maxpert/tagcodec/batch"
	"github.com/maxpert/tagcodec/charset"
)

type OpType int

const (
	OpStartTag OpType = iota
	OpEndTag
	OpAttribute
	OpEscape
	OpDecode
)

func (o OpType) String() string {
	switch o {
	case OpStartTag:
		return "STARTTAG"
	case OpEndTag:
		return "ENDTAG"
	case OpAttribute:
		return "ATTRIBUTE"
	case OpEscape:
		return "ESCAPE"
	case OpDecode:
		return "DECODE"
	default:
		return "UNKNOWN"
	}
}

// opTypes lists every OpType in declaration order.
var opTypes = [...]OpType{OpStartTag, OpEndTag, OpAttribute, OpEscape, OpDecode}

// Operation is a single codec call with its generated input.
type Operation struct {
	Type  OpType
	Name  string
	Attrs [][]any
	Value string
	Raw   []byte // Pre-encoded input for OpDecode
}

// OpSelector selects operations based on workload distribution.
type OpSelector struct {
	dist       WorkloadDistribution
	thresholds [5]int // Cumulative thresholds for each op type
	rng        *rand.Rand
}

// NewOpSelector creates an operation selector.
func NewOpSelector(dist WorkloadDistribution, seed int64) *OpSelector {
	s := &OpSelector{
		dist: dist,
		rng:  rand.New(rand.NewSource(seed)),
	}

	// Build cumulative thresholds
	s.thresholds[0] = dist.StartTag
	s.thresholds[1] = s.thresholds[0] + dist.EndTag
	s.thresholds[2] = s.thresholds[1] + dist.Attribute
	s.thresholds[3] = s.thresholds[2] + dist.Escape
	s.thresholds[4] = s.thresholds[3] + dist.Decode

	return s
}

// Select returns a random operation type based on distribution.
func (s *OpSelector) Select() OpType {
	r := s.rng.Intn(100)

	if r < s.thresholds[0] {
		return OpStartTag
	}
	if r < s.thresholds[1] {
		return OpEndTag
	}
	if r < s.thresholds[2] {
		return OpAttribute
	}
	if r < s.thresholds[3] {
		return OpEscape
	}
	return OpDecode
}

var tagNames = []string{"b", "i", "u", "url", "img", "quote", "code", "list", "size", "color"}

// ValueGenerator produces values that exercise quoting and escaping.
type ValueGenerator struct {
	alphabet []rune
	size     int
}

// NewValueGenerator picks an alphabet the pool's encoding can represent.
func NewValueGenerator(pool *Pool, size int) *ValueGenerator {
	alphabet := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 []\"\\=/")
	for _, r := range "éüßñçø" {
		if pool.Represents(string(r)) {
			alphabet = append(alphabet, r)
		}
	}
	if pool.Represents("€") {
		alphabet = append(alphabet, '€')
	}
	return &ValueGenerator{alphabet: alphabet, size: size}
}

// Value generates a random value of the configured rune length.
func (g *ValueGenerator) Value(rng *rand.Rand) string {
	r := make([]rune, g.size)
	for i := range r {
		r[i] = g.alphabet[rng.Intn(len(g.alphabet))]
	}
	return string(r)
}

// ExecuteOp runs op against proc and returns the output size.
func ExecuteOp(proc *batch.Processor, op Operation) (int, error) {
	switch op.Type {
	case OpStartTag:
		return executeStartTag(proc, op)
	case OpEndTag:
		out, err := proc.Encoder().EndTag([]byte(op.Name))
		return len(out), err
	case OpAttribute:
		out, err := proc.Encoder().Attribute(op.Value)
		return len(out), err
	case OpEscape:
		out, err := proc.Encoder().EscapeText(op.Value)
		return len(out), err
	case OpDecode:
		out, err := proc.Decoder().Attribute(op.Raw, charset.Strict)
		return len(out), err
	default:
		return 0, fmt.Errorf("unknown operation type: %v", op.Type)
	}
}

func executeStartTag(proc *batch.Processor, op Operation) (int, error) {
	attrs, err := attr.FromSlice(op.Attrs)
	defer attrs.Clear()
	if err != nil {
		return 0, err
	}
	out, err := proc.Encoder().StartTag([]byte(op.Name), attrs, false)
	return len(out), err
}
