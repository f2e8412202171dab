package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/maxpert/tagcodec/admin"
	"github.com/maxpert/tagcodec/attr"
	"github.com/maxpert/tagcodec/batch"
	"github.com/maxpert/tagcodec/cfg"
	"github.com/maxpert/tagcodec/charset"
	"github.com/maxpert/tagcodec/markup/text"
	"github.com/maxpert/tagcodec/telemetry"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

var errUsage = errors.New("usage: tagcodec [flags] <starttag|endtag|attr|escape|content|decode|decode-attr|batch|serve|version> [args]")

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging; stdout carries codec output
	var writer io.Writer = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stderr
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	if err := charset.SetCacheSize(cfg.Config.Charset.CacheSize); err != nil {
		log.Fatal().Err(err).Msg("Failed to size charset cache")
	}

	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	telemetry.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Args(), os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.PrintDefaults()
			os.Exit(2)
		}
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// run executes one CLI command against the loaded configuration
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	if args[0] == "version" {
		_, err := fmt.Fprintf(stdout, "tagcodec %s\n", Version)
		return err
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "starttag":
		return runStartTag(proc, rest, stdout)
	case "endtag":
		if len(rest) != 1 {
			return fmt.Errorf("endtag takes one name: %w", errUsage)
		}
		return writeResult(stdout)(proc.Encoder().EndTag([]byte(rest[0])))
	case "attr":
		return writeResult(stdout)(proc.Encoder().Attribute(strings.Join(rest, " ")))
	case "content":
		return writeResult(stdout)(proc.Encoder().Content(strings.Join(rest, " ")))
	case "escape":
		out, err := proc.Encoder().EscapeText(strings.Join(rest, " "))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, out)
		return err
	case "decode", "decode-attr":
		return runDecode(proc, cmd, rest, stdin, stdout)
	case "batch":
		_, err := proc.Run(ctx, stdin, stdout, batch.OptionsFromConfig())
		return err
	case "serve":
		return serve(ctx, proc)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func newProcessor() (*batch.Processor, error) {
	enc, err := text.NewEncoder(cfg.Config.Encoding.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	dec, err := text.NewDecoder(cfg.Config.Encoding.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	return batch.NewProcessor(enc, dec, cfg.Policy()), nil
}

// runStartTag parses "[-closed] name [key[=value]...]"
func runStartTag(proc *batch.Processor, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("starttag", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	closed := fs.Bool("closed", false, "Write a self-closing tag")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("starttag: %v: %w", err, errUsage)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("starttag needs a name: %w", errUsage)
	}

	var attrs *attr.List
	defer func() { attrs.Clear() }()
	for _, arg := range fs.Args()[1:] {
		var err error
		if key, value, ok := strings.Cut(arg, "="); ok {
			attrs, err = attr.Append(attrs, key, value)
		} else {
			attrs, err = attr.Append(attrs, arg, nil)
		}
		if err != nil {
			return err
		}
	}

	return writeResult(stdout)(proc.Encoder().StartTag([]byte(fs.Arg(0)), attrs, *closed))
}

// runDecode decodes the joined arguments, or stdin when there are none
func runDecode(proc *batch.Processor, cmd string, args []string, stdin io.Reader, stdout io.Writer) error {
	var raw []byte
	if len(args) > 0 {
		raw = []byte(strings.Join(args, " "))
	} else {
		var err error
		if raw, err = io.ReadAll(stdin); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}

	var out string
	var err error
	if cmd == "decode-attr" {
		out, err = proc.Decoder().Attribute(raw, proc.Policy())
	} else {
		out, err = proc.Decoder().Decode(raw, proc.Policy())
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}

// writeResult writes encoded bytes followed by a newline
func writeResult(w io.Writer) func([]byte, error) error {
	return func(out []byte, err error) error {
		if err != nil {
			return err
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
		_, err = io.WriteString(w, "\n")
		return err
	}
}

func serve(ctx context.Context, proc *batch.Processor) error {
	if !cfg.Config.Admin.Enabled {
		return errors.New("admin server is disabled in configuration")
	}

	handlers := admin.NewAdminHandlers(proc, batch.OptionsFromConfig())
	server := admin.NewServer(cfg.AdminAddress(), admin.NewRouter(handlers, cfg.Config.Admin.MaxBodyBytes))
	if err := server.Start(); err != nil {
		return err
	}

	collector := telemetry.NewMetricsCollector(func() telemetry.CacheSizer {
		return charset.Default()
	}, 15*time.Second)
	collector.Start()
	defer collector.Stop()

	log.Info().
		Str("address", server.Addr().String()).
		Str("output_encoding", proc.Encoder().Encoding()).
		Str("input_encoding", proc.Decoder().Encoding()).
		Msg("tagcodec server is operational")

	<-ctx.Done()
	log.Info().Msg("Shutting down admin server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}
