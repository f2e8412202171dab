package cfg

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/maxpert/tagcodec/charset"
	"github.com/rs/zerolog/log"
)

// CompressionType selects the framing of batch streams
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionZstd CompressionType = "zstd"
)

// EncodingConfiguration selects the character encodings used by the codec
type EncodingConfiguration struct {
	Output string `toml:"output"` // Target encoding of the encoder
	Input  string `toml:"input"`  // Source encoding of the decoder
	Errors string `toml:"errors"` // strict, replace or ignore
}

// CharsetConfiguration controls encoding name resolution
type CharsetConfiguration struct {
	CacheSize int `toml:"cache_size"`
}

// BatchConfiguration controls msgpack stream processing
type BatchConfiguration struct {
	Compression   CompressionType `toml:"compression"`
	MaxFrameBytes int             `toml:"max_frame_bytes"`
}

// AdminConfiguration for the HTTP surface
type AdminConfiguration struct {
	Enabled      bool   `toml:"enabled"`
	BindAddress  string `toml:"bind_address"`
	Port         int    `toml:"port"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// Configuration is the main configuration structure
type Configuration struct {
	Encoding   EncodingConfiguration   `toml:"encoding"`
	Charset    CharsetConfiguration    `toml:"charset"`
	Batch      BatchConfiguration      `toml:"batch"`
	Admin      AdminConfiguration      `toml:"admin"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag     = flag.String("config", "tagcodec.toml", "Path to configuration file")
	OutputEncodingFlag = flag.String("output-encoding", "", "Encoder target encoding (overrides config)")
	InputEncodingFlag  = flag.String("input-encoding", "", "Decoder source encoding (overrides config)")
	ErrorsFlag         = flag.String("errors", "", "Decode error policy: strict, replace, ignore (overrides config)")
	CompressionFlag    = flag.String("compression", "", "Batch stream compression: none, zstd (overrides config)")
	AdminPortFlag      = flag.Int("admin-port", 0, "Admin HTTP port (overrides config)")
	VerboseFlag        = flag.Bool("verbose", false, "Enable debug logging (overrides config)")
)

// Default configuration
var Config = &Configuration{
	Encoding: EncodingConfiguration{
		Output: "utf-8",
		Input:  "utf-8",
		Errors: "strict",
	},

	Charset: CharsetConfiguration{
		CacheSize: charset.DefaultCacheSize,
	},

	Batch: BatchConfiguration{
		Compression:   CompressionNone,
		MaxFrameBytes: 4 << 20, // 4 MiB
	},

	Admin: AdminConfiguration{
		Enabled:      true,
		BindAddress:  "127.0.0.1",
		Port:         8089,
		MaxBodyBytes: 1 << 20, // 1 MiB
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled:   true,
		Namespace: "tagcodec",
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Debug().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	applyFlags()
	return nil
}

func applyFlags() {
	if *OutputEncodingFlag != "" {
		Config.Encoding.Output = *OutputEncodingFlag
	}
	if *InputEncodingFlag != "" {
		Config.Encoding.Input = *InputEncodingFlag
	}
	if *ErrorsFlag != "" {
		Config.Encoding.Errors = *ErrorsFlag
	}
	if *CompressionFlag != "" {
		Config.Batch.Compression = CompressionType(*CompressionFlag)
	}
	if *AdminPortFlag != 0 {
		Config.Admin.Port = *AdminPortFlag
	}
	if *VerboseFlag {
		Config.Logging.Verbose = true
	}
}

// Validate checks configuration for errors
func Validate() error {
	if Config.Charset.CacheSize < 1 {
		return fmt.Errorf("charset cache size must be >= 1")
	}

	if _, err := charset.Lookup(Config.Encoding.Output); err != nil {
		return fmt.Errorf("invalid output encoding: %w", err)
	}

	if _, err := charset.Lookup(Config.Encoding.Input); err != nil {
		return fmt.Errorf("invalid input encoding: %w", err)
	}

	if _, err := charset.ParsePolicy(Config.Encoding.Errors); err != nil {
		return fmt.Errorf("invalid error policy: %w", err)
	}

	switch Config.Batch.Compression {
	case CompressionNone, CompressionZstd:
	default:
		return fmt.Errorf("invalid batch compression: %s", Config.Batch.Compression)
	}

	if Config.Batch.MaxFrameBytes < 1 {
		return fmt.Errorf("batch max frame bytes must be >= 1")
	}

	if Config.Admin.Enabled {
		if Config.Admin.Port < 1 || Config.Admin.Port > 65535 {
			return fmt.Errorf("invalid admin port: %d", Config.Admin.Port)
		}
		if Config.Admin.MaxBodyBytes < 1 {
			return fmt.Errorf("admin max body bytes must be >= 1")
		}
	}

	switch Config.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", Config.Logging.Format)
	}

	return nil
}

// Policy returns the configured decode error policy. Call after Validate.
func Policy() charset.Policy {
	p, _ := charset.ParsePolicy(Config.Encoding.Errors)
	return p
}

// AdminAddress returns the host:port the admin server listens on
func AdminAddress() string {
	return fmt.Sprintf("%s:%d", Config.Admin.BindAddress, Config.Admin.Port)
}
