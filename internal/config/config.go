// Package config loads stanmath settings from YAML files and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/stanmath/internal/arena"
	"github.com/born-ml/stanmath/internal/autodiff"
	"github.com/born-ml/stanmath/internal/metrics"
	"github.com/born-ml/stanmath/internal/parallel"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the top-level configuration.
//
// Thread Safety: safe to read concurrently once loaded.
type Config struct {
	// Arena sizes the tape and operand arenas of every stack.
	Arena ArenaConfig `yaml:"arena"`

	// Log controls the CLI logger.
	Log LogConfig `yaml:"log"`

	// Parallel controls multi-episode runs.
	Parallel ParallelConfig `yaml:"parallel"`

	// Metrics controls the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing controls the OpenTelemetry stdout exporter.
	Tracing TracingConfig `yaml:"tracing"`
}

// ArenaConfig mirrors arena.Config.
type ArenaConfig struct {
	InitialBlock int `yaml:"initial_block"`
	Growth       int `yaml:"growth"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// ParallelConfig contains parallel execution settings.
type ParallelConfig struct {
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TracingConfig contains tracing settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the default configuration.
func Default() Config {
	a := arena.DefaultConfig()
	p := parallel.DefaultConfig()
	return Config{
		Arena: ArenaConfig{InitialBlock: a.InitialBlock, Growth: a.Growth},
		Log:   LogConfig{Level: "info", Console: true},
		Parallel: ParallelConfig{
			Enabled: p.Enabled,
			Workers: p.NumWorkers,
		},
		Metrics: MetricsConfig{Addr: ":9090"},
		Tracing: TracingConfig{ServiceName: "stanmath"},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped when
// path is empty) and then with STANMATH_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	fromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decode rejects unknown keys so a misspelt setting is not silently ignored.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func fromEnv(cfg *Config) {
	if v := os.Getenv("STANMATH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STANMATH_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Parallel.Workers = i
		}
	}
	if v := os.Getenv("STANMATH_PARALLEL"); v != "" {
		cfg.Parallel.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("STANMATH_METRICS_ADDR"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("STANMATH_TRACING"); v != "" {
		cfg.Tracing.Enabled = v == "true" || v == "1"
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Arena.InitialBlock < 1 {
		return fmt.Errorf("%w: arena.initial_block must be >= 1", ErrInvalid)
	}
	if c.Arena.Growth < 2 {
		return fmt.Errorf("%w: arena.growth must be >= 2", ErrInvalid)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	if c.Parallel.Workers < 1 {
		return fmt.Errorf("%w: parallel.workers must be >= 1", ErrInvalid)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required when metrics are enabled", ErrInvalid)
	}
	return nil
}

// Level returns the configured log level, or info when it does not parse.
func (c Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

// ArenaConfig converts the arena section.
func (c Config) ArenaConfig() arena.Config {
	return arena.Config{InitialBlock: c.Arena.InitialBlock, Growth: c.Arena.Growth}
}

// ParallelConfig converts the parallel section. collectors may be nil.
func (c Config) ParallelConfig(collectors *metrics.Collectors) parallel.Config {
	return parallel.Config{
		Enabled:    c.Parallel.Enabled,
		NumWorkers: c.Parallel.Workers,
		Metrics:    collectors,
	}
}

// StackOptions returns the autodiff options for stacks built under this
// configuration. collectors may be nil.
func (c Config) StackOptions(logger zerolog.Logger, collectors *metrics.Collectors) []autodiff.Option {
	opts := []autodiff.Option{
		autodiff.WithArena(c.ArenaConfig()),
		autodiff.WithLogger(logger),
	}
	if collectors != nil {
		opts = append(opts, autodiff.WithMetrics(collectors))
	}
	return opts
}
