package config

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactivecache/internal/errors"
	"github.com/vango-dev/reactivecache/pkg/reactive"
)

const (
	// DefaultAddress is the default inspector listen address.
	DefaultAddress = "127.0.0.1:7070"

	// DefaultBufferSize is the default number of recent events kept.
	DefaultBufferSize = 1024

	// DefaultDriveInterval is how often serve writes to its workload.
	DefaultDriveInterval = 500 * time.Millisecond
)

// Config is the complete CLI configuration.
type Config struct {
	// Cache configures the runtime's result cache.
	Cache CacheConfig `json:"cache" yaml:"cache" toml:"cache"`

	// Log configures the slog handler.
	Log LogConfig `json:"log" yaml:"log" toml:"log"`

	// Inspect configures the serve command.
	Inspect InspectConfig `json:"inspect" yaml:"inspect" toml:"inspect"`

	// Bench configures the bench command's workloads.
	Bench BenchConfig `json:"bench" yaml:"bench" toml:"bench"`

	path string
}

// CacheConfig contains result cache settings.
type CacheConfig struct {
	// Capacity is the number of memo results kept before LRU eviction.
	Capacity int `json:"capacity" yaml:"capacity" toml:"capacity"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" toml:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" toml:"format"`
}

// InspectConfig contains inspector settings.
type InspectConfig struct {
	// Address is the host:port the inspector listens on.
	Address string `json:"address" yaml:"address" toml:"address"`

	// BufferSize is the number of recent events kept for /events/recent.
	BufferSize int `json:"buffer_size" yaml:"buffer_size" toml:"buffer_size"`

	// DriveInterval is the period between workload writes.
	DriveInterval Duration `json:"drive_interval" yaml:"drive_interval" toml:"drive_interval"`
}

// BenchConfig contains benchmark workload sizes.
type BenchConfig struct {
	ChainLength int `json:"chain_length" yaml:"chain_length" toml:"chain_length"`
	FanOut      int `json:"fan_out" yaml:"fan_out" toml:"fan_out"`
	Writes      int `json:"writes" yaml:"writes" toml:"writes"`
	Iterations  int `json:"iterations" yaml:"iterations" toml:"iterations"`
}

// Duration is a time.Duration written as a string such as "250ms" in every
// supported format.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Cache: CacheConfig{
			Capacity: reactive.DefaultCacheCapacity,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Inspect: InspectConfig{
			Address:       DefaultAddress,
			BufferSize:    DefaultBufferSize,
			DriveInterval: Duration{DefaultDriveInterval},
		},
		Bench: BenchConfig{
			ChainLength: 64,
			FanOut:      32,
			Writes:      1000,
			Iterations:  3,
		},
	}
}

// Load reads the configuration file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithLocation(path, 0, 0).
				WithSuggestion("Check the --config path or omit it to use defaults")
		}
		return nil, errors.New("E100").WithLocation(path, 0, 0).Wrap(err)
	}

	cfg := New()
	if err := cfg.decode(path, data); err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return parseError(path, jsonLine(data, err), err).
				WithSuggestion("Check that the file is valid JSON")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return parseError(path, yamlLine(err), err).
				WithSuggestion("Check the YAML indentation and value types")
		}
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return parseError(path, tomlLine(err), err).
				WithSuggestion("Check that the file is valid TOML")
		}
	default:
		return errors.New("E102").
			WithLocation(path, 0, 0).
			WithDetail("Unsupported extension " + strconv.Quote(ext) + "; use .json, .yaml, .yml or .toml.")
	}
	return nil
}

func parseError(path string, line int, err error) *errors.ReactiveError {
	return errors.New("E101").WithLocation(path, line, 0).Wrap(err)
}

// jsonLine converts a decoder byte offset into a 1-based line number.
func jsonLine(data []byte, err error) int {
	var offset int64
	switch e := err.(type) {
	case *json.SyntaxError:
		offset = e.Offset
	case *json.UnmarshalTypeError:
		offset = e.Offset
	default:
		return 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte("\n")) + 1
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

func yamlLine(err error) int {
	m := yamlLineRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func tomlLine(err error) int {
	if pe, ok := err.(toml.ParseError); ok {
		return pe.Position.Line
	}
	return 0
}

// Path returns the path the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.Cache.Capacity <= 0 {
		return errors.New("E103").
			WithDetail("cache.capacity is " + strconv.Itoa(c.Cache.Capacity) + "; it must be at least 1.").
			WithExample("cache:\n  capacity: 128")
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New("E104").
			WithSuggestion("Use one of: debug, info, warn, error")
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return errors.New("E105").
			WithSuggestion("Use text or json")
	}
	if _, _, err := net.SplitHostPort(c.Inspect.Address); err != nil {
		return errors.New("E106").
			WithExample("inspect:\n  address: 127.0.0.1:7070").
			Wrap(err)
	}
	if c.Inspect.BufferSize <= 0 {
		return errors.New("E107")
	}
	if c.Inspect.DriveInterval.Duration <= 0 {
		return errors.New("E109").
			WithExample("inspect:\n  drive_interval: 500ms")
	}
	b := c.Bench
	if b.ChainLength <= 0 || b.FanOut <= 0 || b.Writes <= 0 || b.Iterations <= 0 {
		return errors.New("E108").
			WithExample("bench:\n  chain_length: 64\n  fan_out: 32\n  writes: 1000\n  iterations: 3")
	}
	return nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Logger builds a slog logger writing to w in the configured format and
// level. Invalid settings fall back to text at info.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
