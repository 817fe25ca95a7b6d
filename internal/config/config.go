// Package config loads the analyzer's TOML configuration. Zero values get
// sensible defaults so an empty or missing file still produces a runnable
// setup.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version int      `toml:"version"`
	Paths   []string `toml:"paths"`
	Exclude Exclude  `toml:"exclude"`
	StdDB   StdDB    `toml:"stddb"`
	Logging Logging  `toml:"logging"`
	Output  Output   `toml:"output"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"` // Glob patterns matched against the relative path
}

type StdDB struct {
	// Path to a sqlite dataset extending the embedded core definitions.
	// Empty means embedded only.
	Path string `toml:"path"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Output struct {
	JSON string `toml:"json"`
}

// Load reads and validates a config file. A missing file is not an error;
// defaults apply.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{"."}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "vendor", "tmp", "node_modules"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d", cfg.Version)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging format %q", cfg.Logging.Format)
	}
	return nil
}
