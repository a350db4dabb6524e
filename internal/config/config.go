// Package config loads node configuration files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
)

// Defaults applied by Parse.
const (
	DefaultPath     = "/relay"
	DefaultInstance = "player-1"
	DefaultLogLevel = "info"
)

// Config describes one node process.
//
// Exactly one of Listen and Dial is set: a listening node is the hub of a
// star, a dialing node joins one.
type Config struct {
	// Node is the node id; empty generates one.
	Node string `yaml:"node"`

	// Context separates correlation identities of unrelated groups.
	Context string `yaml:"context"`

	// Mode is Host, Client or Full.
	Mode ir.Mode `yaml:"mode"`

	// Listen is the host:port the WebSocket hub binds.
	Listen string `yaml:"listen"`

	// Path is the HTTP path of the WebSocket endpoint.
	Path string `yaml:"path"`

	// Dial is the ws:// URL of a hub to join.
	Dial string `yaml:"dial"`

	// Instance is the instance id shared by every node of the group.
	Instance string `yaml:"instance"`

	// Journal is an optional SQLite journal path.
	Journal string `yaml:"journal"`

	// Metrics is an optional host:port serving /metrics.
	Metrics string `yaml:"metrics"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// BatchSize is the number of sequence items per batch envelope.
	BatchSize int `yaml:"batch_size"`
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML with strict field validation, applies defaults and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Context == "" {
		c.Context = engine.DefaultContextID
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Instance == "" {
		c.Instance = DefaultInstance
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.BatchSize == 0 {
		c.BatchSize = engine.DefaultBatchSize
	}
}

// Validate checks field values and their combinations. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error
	if !c.Mode.Valid() {
		errs = append(errs, fmt.Errorf("mode %q must be one of Host, Client, Full", c.Mode))
	}
	switch {
	case c.Listen == "" && c.Dial == "":
		errs = append(errs, errors.New("one of listen or dial is required"))
	case c.Listen != "" && c.Dial != "":
		errs = append(errs, errors.New("listen and dial are mutually exclusive"))
	}
	if c.Dial != "" && !strings.HasPrefix(c.Dial, "ws://") && !strings.HasPrefix(c.Dial, "wss://") {
		errs = append(errs, fmt.Errorf("dial %q must be a ws:// or wss:// URL", c.Dial))
	}
	if !strings.HasPrefix(c.Path, "/") {
		errs = append(errs, fmt.Errorf("path %q must start with /", c.Path))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// NodeOptions returns the engine options the configuration implies.
func (c *Config) NodeOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithContextID(c.Context),
		engine.WithBatchSize(c.BatchSize),
	}
	if c.Node != "" {
		opts = append(opts, engine.WithNodeID(c.Node))
	}
	return opts
}
