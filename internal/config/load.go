package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable that points at a config file. The
// -config flag takes precedence over it.
const EnvConfig = "PACKEDIT_CONFIG"

// FileName is the config file name looked up in the working and config directories.
const FileName = "packedit.yaml"

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config: a project-local file in the
// working directory wins over the user's.
func findConfigFile() string {
	for _, dir := range []string{".", ConfigDir()} {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "PackEdit")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "PackEdit")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "packedit")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "packedit")
	}
}

// Validate rejects settings the tools cannot run with.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if c.Schema.Path == "" {
		return errors.New("schema path is empty")
	}
	if c.Worker.QueueSize < 0 {
		return fmt.Errorf("worker queue size %d is negative", c.Worker.QueueSize)
	}
	if c.Worker.SearchParallelism < 1 {
		return fmt.Errorf("search parallelism must be at least 1, got %d", c.Worker.SearchParallelism)
	}
	if c.Decoder.HexBytesPerLine < 1 {
		return fmt.Errorf("hex bytes per line must be at least 1, got %d", c.Decoder.HexBytesPerLine)
	}
	return nil
}

// SchemaPath resolves the schema path. Relative paths are taken from the config directory
// unless a file by that name exists in the working directory.
func (c *Config) SchemaPath() string {
	p := c.Schema.Path
	if filepath.IsAbs(p) {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(ConfigDir(), p)
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
