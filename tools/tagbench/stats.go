package main

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats tracks benchmark statistics using atomic operations.
type Stats struct {
	// Counters per operation type
	ops    [len(opTypes)]uint64
	errors [len(opTypes)]uint64

	// Output volume
	bytes uint64

	// Latency tracking (nanoseconds)
	mu        sync.Mutex
	latencies []int64
}

// NewStats creates a new stats tracker.
func NewStats() *Stats {
	return &Stats{
		latencies: make([]int64, 0, 100000),
	}
}

// RecordOp records a successful operation.
func (s *Stats) RecordOp(opType OpType, size int, latency time.Duration) {
	atomic.AddUint64(&s.ops[opType], 1)
	atomic.AddUint64(&s.bytes, uint64(size))

	// Record latency
	s.mu.Lock()
	s.latencies = append(s.latencies, latency.Nanoseconds())
	s.mu.Unlock()
}

// RecordError records a failed operation.
func (s *Stats) RecordError(opType OpType) {
	atomic.AddUint64(&s.errors[opType], 1)
}

// TotalOps returns total successful operations.
func (s *Stats) TotalOps() uint64 {
	var total uint64
	for i := range s.ops {
		total += atomic.LoadUint64(&s.ops[i])
	}
	return total
}

// TotalErrors returns total errors.
func (s *Stats) TotalErrors() uint64 {
	var total uint64
	for i := range s.errors {
		total += atomic.LoadUint64(&s.errors[i])
	}
	return total
}

// Bytes returns the total output size of successful operations.
func (s *Stats) Bytes() uint64 {
	return atomic.LoadUint64(&s.bytes)
}

// GetLatencyPercentiles returns p50, p90, p95, p99 in nanoseconds.
func (s *Stats) GetLatencyPercentiles() (p50, p90, p95, p99 int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.latencies) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]int64, len(s.latencies))
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	p50 = sorted[n*50/100]
	p90 = sorted[n*90/100]
	p95 = sorted[n*95/100]
	p99 = sorted[n*99/100]

	return p50, p90, p95, p99
}

// GetLatencyStats returns min, max, avg in nanoseconds.
func (s *Stats) GetLatencyStats() (min, max, avg int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.latencies) == 0 {
		return 0, 0, 0
	}

	min = s.latencies[0]
	max = s.latencies[0]
	var sum int64

	for _, l := range s.latencies {
		if l < min {
			min = l
		}
		if l > max {
			max = l
		}
		sum += l
	}

	avg = sum / int64(len(s.latencies))
	return min, max, avg
}

// Snapshot returns a copy of current counters.
type Snapshot struct {
	Ops    uint64
	Errors uint64
	Bytes  uint64
}

// GetSnapshot returns current stats snapshot.
func (s *Stats) GetSnapshot() Snapshot {
	return Snapshot{
		Ops:    s.TotalOps(),
		Errors: s.TotalErrors(),
		Bytes:  s.Bytes(),
	}
}

// PrintFinal prints final statistics.
func (s *Stats) PrintFinal(elapsed time.Duration) {
	totalOps := s.TotalOps()
	totalErrors := s.TotalErrors()

	throughput := float64(totalOps) / elapsed.Seconds()

	fmt.Println()
	fmt.Printf("Total time:    %.2fs\n", elapsed.Seconds())
	fmt.Printf("Throughput:    %.2f ops/sec\n", throughput)
	fmt.Printf("Output:        %.2f MiB/sec\n", float64(s.Bytes())/elapsed.Seconds()/(1<<20))
	fmt.Println()

	fmt.Println("Operations:")
	for _, op := range opTypes {
		fmt.Printf("  %-10s %d\n", op.String()+":", atomic.LoadUint64(&s.ops[op]))
	}
	fmt.Printf("  %-10s %d\n", "TOTAL:", totalOps)
	fmt.Println()

	if totalErrors > 0 {
		fmt.Println("Errors:")
		for _, op := range opTypes {
			if n := atomic.LoadUint64(&s.errors[op]); n > 0 {
				fmt.Printf("  %-10s %d\n", op.String()+":", n)
			}
		}
		fmt.Printf("  %-10s %d\n", "TOTAL:", totalErrors)
		fmt.Println()
	}

	min, max, avg := s.GetLatencyStats()
	p50, p90, p95, p99 := s.GetLatencyPercentiles()

	fmt.Println("Latency (nanoseconds):")
	fmt.Printf("  Min:   %d\n", min)
	fmt.Printf("  Avg:   %d\n", avg)
	fmt.Printf("  Max:   %d\n", max)
	fmt.Printf("  P50:   %d\n", p50)
	fmt.Printf("  P90:   %d\n", p90)
	fmt.Printf("  P95:   %d\n", p95)
	fmt.Printf("  P99:   %d\n", p99)
}
