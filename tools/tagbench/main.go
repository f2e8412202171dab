package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		runBenchmark(args)
	case "verify":
		runVerify(args)
	case "version":
		fmt.Printf("tagbench version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tagbench - tagcodec benchmark tool

Usage:
  tagbench <command> [options]

Commands:
  run       Run benchmark workload
  verify    Verify instances agree and attribute values round-trip
  version   Print version
  help      Show this help

Run Options:
  --encoding      Target encoding (default: utf-8)
  --instances     Shared encoder/decoder pairs (default: 1)
  --workload      Workload type: mixed|encode-only|decode-only|attribute-heavy (default: mixed)
  --operations    Total operations to execute (default: 1000000)
  --duration      Duration to run (e.g., 10s), overrides --operations
  --threads       Number of concurrent workers (default: 8)
  --starttag-pct  Start tag percentage (overrides workload default)
  --endtag-pct    End tag percentage (overrides workload default)
  --attr-pct      Attribute percentage (overrides workload default)
  --escape-pct    Escape percentage (overrides workload default)
  --decode-pct    Decode percentage (overrides workload default)
  --value-size    Runes per generated value (default: 32)
  --attrs         Attributes per start tag (default: 3)
  --verify        Run verification after benchmark (default: false)
  --verify-samples Number of values to verify (default: 1000)

Verify Options:
  --encoding      Target encoding (default: utf-8)
  --instances     Encoder/decoder pairs to compare (default: 4)
  --value-size    Runes per generated value (default: 32)
  --samples       Number of values to verify (default: 1000)

Examples:
  tagbench run --workload=mixed --threads=16 --operations=5000000
  tagbench run --encoding=latin-1 --workload=attribute-heavy --duration=30s
  tagbench verify --encoding=cp1252 --instances=8 --samples=10000`)
}

func runBenchmark(args []string) {
	cfg := &Config{}
	fs := flag.NewFlagSet("run", flag.ExitOnError)

	var timeLimit time.Duration
	fs.DurationVar(&timeLimit, "time-limit", 0, "Maximum time to run (e.g., 30s, 1m)")
	fs.StringVar(&cfg.Encoding, "encoding", "utf-8", "Target encoding")
	fs.IntVar(&cfg.Instances, "instances", 1, "Shared encoder/decoder pairs")
	fs.StringVar(&cfg.Workload, "workload", "mixed", "Workload type")
	fs.IntVar(&cfg.Operations, "operations", 1000000, "Total operations to execute")
	fs.DurationVar(&cfg.Duration, "duration", 0, "Duration to run (overrides --operations)")
	fs.IntVar(&cfg.Threads, "threads", 8, "Number of concurrent workers")
	fs.IntVar(&cfg.StartTagPct, "starttag-pct", -1, "Start tag percentage (overrides workload)")
	fs.IntVar(&cfg.EndTagPct, "endtag-pct", -1, "End tag percentage (overrides workload)")
	fs.IntVar(&cfg.AttributePct, "attr-pct", -1, "Attribute percentage (overrides workload)")
	fs.IntVar(&cfg.EscapePct, "escape-pct", -1, "Escape percentage (overrides workload)")
	fs.IntVar(&cfg.DecodePct, "decode-pct", -1, "Decode percentage (overrides workload)")
	fs.IntVar(&cfg.ValueSize, "value-size", 32, "Runes per generated value")
	fs.IntVar(&cfg.Attrs, "attrs", 3, "Attributes per start tag")
	fs.BoolVar(&cfg.Verify, "verify", false, "Run verification after benchmark")
	fs.IntVar(&cfg.VerifySamples, "verify-samples", 1000, "Number of values to verify")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if timeLimit > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeLimit)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, shutting down...")
		cancel()
	}()

	if err := executeRun(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	// Run verification if enabled
	if cfg.Verify {
		verifyCtx, verifyCancel := context.WithCancel(context.Background())
		defer verifyCancel()

		if err := executeVerify(verifyCtx, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Verification failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func runVerify(args []string) {
	cfg := &Config{
		Threads: 1, // Default for verify to pass validation
	}
	fs := flag.NewFlagSet("verify", flag.ExitOnError)

	fs.StringVar(&cfg.Encoding, "encoding", "utf-8", "Target encoding")
	fs.IntVar(&cfg.Instances, "instances", 4, "Encoder/decoder pairs to compare")
	fs.IntVar(&cfg.ValueSize, "value-size", 32, "Runes per generated value")
	fs.IntVar(&cfg.VerifySamples, "samples", 1000, "Number of values to verify")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, shutting down...")
		cancel()
	}()

	if err := executeVerify(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Verify failed: %v\n", err)
		os.Exit(1)
	}
}
