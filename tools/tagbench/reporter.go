package main

import (
	"context"
	"fmt"
	"time"
)

// reportProgress prints real-time progress every second.
func reportProgress(ctx context.Context, stats *Stats) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastSnapshot Snapshot
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := stats.GetSnapshot()
			elapsed := time.Since(startTime)

			opsSec := snapshot.Ops - lastSnapshot.Ops
			cumThroughput := float64(snapshot.Ops) / elapsed.Seconds()

			fmt.Printf("[%5.0fs] ops/sec: %9d | total: %10d | errors: %4d | out: %8.1f MiB | throughput: %.1f ops/sec\n",
				elapsed.Seconds(),
				opsSec,
				snapshot.Ops,
				snapshot.Errors,
				float64(snapshot.Bytes)/(1<<20),
				cumThroughput,
			)

			lastSnapshot = snapshot
		}
	}
}
