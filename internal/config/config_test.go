package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Schema.Path != "schema.yaml" {
		t.Errorf("expected schema path schema.yaml, got %s", cfg.Schema.Path)
	}
	if len(cfg.Data.PackPaths) != 0 {
		t.Errorf("expected no pack paths, got %v", cfg.Data.PackPaths)
	}
	if cfg.Table.CaseSensitive || cfg.Table.Regex {
		t.Error("expected plain case-insensitive search by default")
	}
	if cfg.Decoder.HexBytesPerLine != 16 {
		t.Errorf("expected 16 hex bytes per line, got %d", cfg.Decoder.HexBytesPerLine)
	}
	if cfg.Worker.SearchParallelism != 4 {
		t.Errorf("expected search parallelism 4, got %d", cfg.Worker.SearchParallelism)
	}
	if cfg.Worker.CallTimeout != 30*time.Second {
		t.Errorf("expected call timeout 30s, got %v", cfg.Worker.CallTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
schema:
  path: "/data/schema_wh3.yaml"

data:
  pack_paths:
    - "data.pack"
    - "local_en.pack"
  dependency_paths:
    - "db.pack"

table:
  case_sensitive: true
  regex: true
  tsv_dir: "exports"

decoder:
  hex_bytes_per_line: 32
  preview_rows: 5

worker:
  queue_size: 4
  search_parallelism: 8
  call_timeout: 5s

logging:
  level: "debug"
  log_file: "packedit.log"
  compress: false
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Schema.Path != "/data/schema_wh3.yaml" {
		t.Errorf("unexpected schema path %s", cfg.Schema.Path)
	}
	if !reflect.DeepEqual(cfg.Data.PackPaths, []string{"data.pack", "local_en.pack"}) {
		t.Errorf("unexpected pack paths %v", cfg.Data.PackPaths)
	}
	if !reflect.DeepEqual(cfg.Data.DependencyPaths, []string{"db.pack"}) {
		t.Errorf("unexpected dependency paths %v", cfg.Data.DependencyPaths)
	}
	if !cfg.Table.CaseSensitive || !cfg.Table.Regex || cfg.Table.TSVDir != "exports" {
		t.Errorf("unexpected table config %+v", cfg.Table)
	}
	if cfg.Decoder.HexBytesPerLine != 32 || cfg.Decoder.PreviewRows != 5 {
		t.Errorf("unexpected decoder config %+v", cfg.Decoder)
	}
	if cfg.Worker.QueueSize != 4 || cfg.Worker.SearchParallelism != 8 || cfg.Worker.CallTimeout != 5*time.Second {
		t.Errorf("unexpected worker config %+v", cfg.Worker)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "packedit.log" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Logging.Compress {
		t.Error("expected compress to be false")
	}
	// Untouched keys keep their defaults.
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("expected default max backups 3, got %d", cfg.Logging.MaxBackups)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
worker:
  queue_size: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"empty schema path", func(c *Config) { c.Schema.Path = "" }},
		{"negative queue", func(c *Config) { c.Worker.QueueSize = -1 }},
		{"no parallelism", func(c *Config) { c.Worker.SearchParallelism = 0 }},
		{"no hex width", func(c *Config) { c.Decoder.HexBytesPerLine = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestSchemaPath(t *testing.T) {
	cfg := Default()
	cfg.Schema.Path = "/abs/schema.yaml"
	if got := cfg.SchemaPath(); got != "/abs/schema.yaml" {
		t.Errorf("absolute path should be kept, got %s", got)
	}

	cfg.Schema.Path = "definitely-missing-schema.yaml"
	if got := cfg.SchemaPath(); got != filepath.Join(ConfigDir(), "definitely-missing-schema.yaml") {
		t.Errorf("missing relative path should resolve into the config dir, got %s", got)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// A config in the user config dir would be found too; only check the local one.
	if _, err := os.Stat(filepath.Join(ConfigDir(), FileName)); err == nil {
		t.Skip("user config present")
	}
	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("decoder:\n  preview_rows: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if path := findConfigFile(); path != "" {
		t.Errorf("only %s is looked up, got %s", FileName, path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte("decoder:\n  preview_rows: 3\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path != filepath.Join(".", FileName) {
		t.Errorf("expected to find %s in current directory, got %q", FileName, path)
	}
}

func TestLoad_EnvConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("decoder:\n  preview_rows: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfig, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Decoder.PreviewRows != 7 {
		t.Errorf("expected preview rows from %s, got %d", EnvConfig, cfg.Decoder.PreviewRows)
	}

	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for a missing config named by the environment")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "schema flag",
			setup: func() { *flagSchema = "custom.yaml" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Schema.Path != "custom.yaml" {
					t.Errorf("expected schema custom.yaml, got %s", cfg.Schema.Path)
				}
			},
			teardown: func() { *flagSchema = "" },
		},
		{
			name:  "log file flag",
			setup: func() { *flagLogFile = "out.log" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.LogFile != "out.log" {
					t.Errorf("expected log file out.log, got %s", cfg.Logging.LogFile)
				}
			},
			teardown: func() { *flagLogFile = "" },
		},
		{
			name:  "packs flag",
			setup: func() { *flagPacks = "a.pack, b.pack,," },
			verify: func(t *testing.T, cfg *Config) {
				if !reflect.DeepEqual(cfg.Data.PackPaths, []string{"a.pack", "b.pack"}) {
					t.Errorf("unexpected pack paths %v", cfg.Data.PackPaths)
				}
			},
			teardown: func() { *flagPacks = "" },
		},
		{
			name:  "parallel flag",
			setup: func() { *flagParallel = 12 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Worker.SearchParallelism != 12 {
					t.Errorf("expected parallelism 12, got %d", cfg.Worker.SearchParallelism)
				}
			},
			teardown: func() { *flagParallel = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
schema:
  path: "from-file.yaml"
worker:
  search_parallelism: 2
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagSchema = "from-flag.yaml"
	defer func() {
		*flagConfig = ""
		*flagSchema = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Schema.Path != "from-flag.yaml" {
		t.Errorf("expected schema from flag, got %s", cfg.Schema.Path)
	}
	if cfg.Worker.SearchParallelism != 2 {
		t.Errorf("expected parallelism 2 from file, got %d", cfg.Worker.SearchParallelism)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Data.PackPaths = []string{"data.pack"}
	cfg.Worker.CallTimeout = time.Minute

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("reloaded config differs:\n got %+v\nwant %+v", loaded, cfg)
	}
}
