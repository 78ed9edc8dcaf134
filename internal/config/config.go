// Package config handles packedit configuration loading and management.
package config

import "time"

// Config holds all packedit settings.
type Config struct {
	Schema  SchemaConfig  `yaml:"schema"`
	Data    DataConfig    `yaml:"data"`
	Table   TableConfig   `yaml:"table"`
	Decoder DecoderConfig `yaml:"decoder"`
	Worker  WorkerConfig  `yaml:"worker"`
	Logging LoggingConfig `yaml:"logging"`
}

// SchemaConfig locates the schema store.
type SchemaConfig struct {
	Path string `yaml:"path"` // YAML file holding every table definition
}

// DataConfig holds PackFile paths.
type DataConfig struct {
	PackPaths       []string `yaml:"pack_paths,omitempty"`       // PackFiles searched by global search
	DependencyPaths []string `yaml:"dependency_paths,omitempty"` // PackFiles whose tables feed reference lookups
}

// TableConfig holds table editor defaults.
type TableConfig struct {
	CaseSensitive bool   `yaml:"case_sensitive"` // default for search and filter
	Regex         bool   `yaml:"regex"`
	TSVDir        string `yaml:"tsv_dir"` // where exports land when no path is given
}

// DecoderConfig holds decoder session settings.
type DecoderConfig struct {
	HexBytesPerLine int `yaml:"hex_bytes_per_line"`
	PreviewRows     int `yaml:"preview_rows"` // rows printed after a test decode
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	QueueSize         int           `yaml:"queue_size"`
	SearchParallelism int           `yaml:"search_parallelism"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Schema: SchemaConfig{
			Path: "schema.yaml",
		},
		Table: TableConfig{
			TSVDir: ".",
		},
		Decoder: DecoderConfig{
			HexBytesPerLine: 16,
			PreviewRows:     20,
		},
		Worker: WorkerConfig{
			QueueSize:         16,
			SearchParallelism: 4,
			CallTimeout:       30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}
