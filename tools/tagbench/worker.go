package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Worker executes operations against the shared codec pool.
type Worker struct {
	id         int
	pool       *Pool
	values     *ValueGenerator
	opSelector *OpSelector
	stats      *Stats
	attrs      int
	rng        *rand.Rand
}

// NewWorker creates a new worker.
func NewWorker(id int, pool *Pool, values *ValueGenerator, opSelector *OpSelector, stats *Stats, attrs int) *Worker {
	return &Worker{
		id:         id,
		pool:       pool,
		values:     values,
		opSelector: opSelector,
		stats:      stats,
		attrs:      attrs,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano() + int64(id))),
	}
}

// RunBenchmark executes the benchmark workload.
func (w *Worker) RunBenchmark(ctx context.Context, opsChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-opsChan:
			if !ok {
				return
			}

			op, err := w.generateOp(w.opSelector.Select())
			if err != nil {
				w.stats.RecordError(op.Type)
				continue
			}

			proc := w.pool.Get()
			start := time.Now()
			size, err := ExecuteOp(proc, op)
			latency := time.Since(start)

			if err != nil {
				w.stats.RecordError(op.Type)
			} else {
				w.stats.RecordOp(op.Type, size, latency)
			}
		}
	}
}

func (w *Worker) generateOp(opType OpType) (Operation, error) {
	op := Operation{
		Type: opType,
		Name: tagNames[w.rng.Intn(len(tagNames))],
	}

	switch opType {
	case OpStartTag:
		op.Attrs = make([][]any, w.attrs)
		for i := range op.Attrs {
			key := fmt.Sprintf("a%d", i)
			if w.rng.Intn(4) == 0 {
				op.Attrs[i] = []any{key, nil}
			} else {
				op.Attrs[i] = []any{key, w.values.Value(w.rng)}
			}
		}
	case OpAttribute, OpEscape:
		op.Value = w.values.Value(w.rng)
	case OpDecode:
		// Decode input is produced outside the timed section
		op.Value = w.values.Value(w.rng)
		raw, err := w.pool.Get().Encoder().Attribute(op.Value)
		if err != nil {
			return op, err
		}
		op.Raw = raw
	}

	return op, nil
}

// executeRun runs the benchmark phase.
func executeRun(ctx context.Context, cfg *Config) error {
	fmt.Println("╔══════════════════════════════════════════════════════╗")
	fmt.Println("║            Tagbench Benchmark Phase                  ║")
	fmt.Println("╚══════════════════════════════════════════════════════╝")
	fmt.Println()

	dist := cfg.GetWorkloadDistribution()
	if err := dist.Validate(); err != nil {
		return err
	}

	pool, err := NewPool(cfg.Encoding, cfg.Instances)
	if err != nil {
		return fmt.Errorf("failed to create codec pool: %w", err)
	}

	fmt.Printf("Encoding:    %s\n", pool.Encoding())
	fmt.Printf("Instances:   %d\n", pool.Size())
	fmt.Printf("Workload:    %s\n", cfg.Workload)
	fmt.Printf("Distribution: S:%d%% E:%d%% A:%d%% X:%d%% D:%d%%\n",
		dist.StartTag, dist.EndTag, dist.Attribute, dist.Escape, dist.Decode)
	fmt.Printf("Operations:  %d\n", cfg.Operations)
	if cfg.Duration > 0 {
		fmt.Printf("Duration:    %s\n", cfg.Duration)
	}
	fmt.Printf("Threads:     %d\n", cfg.Threads)
	fmt.Printf("ValueSize:   %d\n", cfg.ValueSize)
	fmt.Printf("Attrs:       %d\n", cfg.Attrs)
	fmt.Println()

	stats := NewStats()
	values := NewValueGenerator(pool, cfg.ValueSize)

	// Create operation channel
	opsChan := make(chan struct{}, cfg.Threads*10)

	var wg sync.WaitGroup
	start := time.Now()

	// Start workers
	for i := 0; i < cfg.Threads; i++ {
		wg.Add(1)
		opSelector := NewOpSelector(dist, time.Now().UnixNano()+int64(i))
		worker := NewWorker(i, pool, values, opSelector, stats, cfg.Attrs)
		go worker.RunBenchmark(ctx, opsChan, &wg)
	}

	// Start reporter
	reporterCtx, stopReporter := context.WithCancel(ctx)
	go reportProgress(reporterCtx, stats)

	// Feed operations
	if cfg.Duration > 0 {
		deadline := time.After(cfg.Duration)
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-deadline:
				break loop
			case opsChan <- struct{}{}:
			}
		}
	} else {
	opsLoop:
		for i := 0; i < cfg.Operations; i++ {
			select {
			case <-ctx.Done():
				break opsLoop
			case opsChan <- struct{}{}:
			}
		}
	}

	close(opsChan)
	wg.Wait()
	stopReporter()
	elapsed := time.Since(start)

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println("                  BENCHMARK COMPLETE                   ")
	fmt.Println("═══════════════════════════════════════════════════════")
	stats.PrintFinal(elapsed)

	return nil
}
