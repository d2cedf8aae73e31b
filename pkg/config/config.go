package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/distgraph/pkg/logging"
	"github.com/ritzau/distgraph/pkg/meshgen"
	"github.com/ritzau/distgraph/pkg/partition"
)

// DefaultFile is the configuration file read from the working directory.
const DefaultFile = "distgraph.toml"

// EnvPrefix prefixes environment overrides, e.g. DISTGRAPH_RANKS=4.
const EnvPrefix = "DISTGRAPH_"

// ErrInvalid indicates an unusable configuration.
var ErrInvalid = errors.New("config: invalid")

// Config holds all configuration for the application
type Config struct {
	ConfigFile  string             `koanf:"config"`
	Input       string             `koanf:"input"` // edge-list file; empty generates Grid
	Grid        meshgen.StructGrid `koanf:",squash"`
	Ranks       int                `koanf:"ranks"`
	Partitioner string             `koanf:"partitioner"`
	Directed    bool               `koanf:"directed"`
	Timeout     time.Duration      `koanf:"timeout"`
	SlowPhase   time.Duration      `koanf:"slowphase"`
	WebMode     bool               `koanf:"web"`
	Port        int                `koanf:"port"`
	Watch       bool               `koanf:"watch"`
	Verbosity   string             `koanf:"verbosity"`
	VerboseCnt  int                `koanf:"verbose"`
	JSON        bool               `koanf:"json"`
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"config":      DefaultFile,
		"input":       "",
		"cellx":       4,
		"celly":       4,
		"cellz":       4,
		"ranks":       2,
		"partitioner": "claim",
		"directed":    false,
		"timeout":     "30s",
		"slowphase":   "0s",
		"web":         false,
		"port":        8080,
		"watch":       false,
		"verbosity":   "",
		"verbose":     0,
		"json":        false,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional). Only an explicit --config may point
	// elsewhere; a missing file is not an error.
	path := DefaultFile
	if f != nil {
		if v, err := f.GetString("config"); err == nil && v != "" {
			path = v
		}
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	// 3. Environment Variables
	// Prefix: DISTGRAPH_ (e.g., DISTGRAPH_PORT=9090)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigFile = path

	return &cfg, nil
}

// Validate checks the settings a build depends on.
func (c *Config) Validate() error {
	if c.Input == "" {
		if c.Ranks <= 0 {
			return fmt.Errorf("%w: ranks must be positive, got %d", ErrInvalid, c.Ranks)
		}
		if err := c.Grid.Validate(c.Ranks); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if _, err := partition.ByName[int64](c.Partitioner); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalid, c.Timeout)
	}
	if c.SlowPhase < 0 {
		return fmt.Errorf("%w: negative slowphase %s", ErrInvalid, c.SlowPhase)
	}
	if c.WebMode && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	}
	return nil
}

// LogLevel returns the configured level. A named verbosity wins over the
// -v count.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Verbosity) {
	case "":
		return logging.LevelFromVerbosity(c.VerboseCnt), nil
	case "trace":
		return logging.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: verbosity %q", ErrInvalid, c.Verbosity)
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
