package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qrv0/sparrow/internal/fileformat"
	"github.com/qrv0/sparrow/internal/sparse"
)

// Config is the complete sparrow configuration.
type Config struct {
	// Backend is "host" or "cuda".
	Backend string `yaml:"backend" json:"backend"`

	// FallbackToHost uses the host runtime when cuda is unavailable.
	FallbackToHost bool `yaml:"fallback_to_host" json:"fallback_to_host"`

	// PoolSize is the number of handles for concurrent work.
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Container ContainerConfig `yaml:"container" json:"container"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" json:"level"`

	// Format: text or json
	Format string `yaml:"format" json:"format"`

	// ReportFailures routes failed runtime calls to the log.
	ReportFailures bool `yaml:"report_failures" json:"report_failures"`
}

// ContainerConfig controls .spmx output.
type ContainerConfig struct {
	// Compression: none, lz4, zstd
	Compression string `yaml:"compression" json:"compression"`

	// ChunkSize is the checksum chunk in bytes.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend:        string(sparse.BackendHost),
		FallbackToHost: true,
		PoolSize:       4,
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			ReportFailures: true,
		},
		Container: ContainerConfig{
			Compression: "lz4",
			ChunkSize:   64 << 10,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every enumerated field.
func (c *Config) Validate() error {
	switch sparse.Backend(c.Backend) {
	case sparse.BackendHost, sparse.BackendCUDA:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}
	if _, err := c.Logging.level(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	if _, err := c.Container.Flags(); err != nil {
		return err
	}
	if c.Container.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Container.ChunkSize)
	}
	return nil
}

func (l LoggingConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", l.Level)
	}
	return lvl, nil
}

// Logger builds a slog logger writing to w.
func (l LoggingConfig) Logger(w io.Writer) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Flags maps the compression name to container section flags.
func (c ContainerConfig) Flags() (uint32, error) {
	switch c.Compression {
	case "", "none":
		return 0, nil
	case "lz4":
		return fileformat.FlagCompLZ4, nil
	case "zstd":
		return fileformat.FlagCompZSTD, nil
	}
	return 0, fmt.Errorf("unknown compression %q", c.Compression)
}
