package config

import (
	"flag"
	"strings"
)

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagSchema   = flag.String("schema", "", "Path to the schema file")
	flagLogFile  = flag.String("log-file", "", "Write logs to this file as well")
	flagPacks    = flag.String("packs", "", "Comma-separated PackFiles for global search")
	flagParallel = flag.Int("parallel", 0, "Files searched concurrently by global search")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSchema != "" {
		cfg.Schema.Path = *flagSchema
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagPacks != "" {
		cfg.Data.PackPaths = nil
		for _, p := range strings.Split(*flagPacks, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Data.PackPaths = append(cfg.Data.PackPaths, p)
			}
		}
	}
	if *flagParallel > 0 {
		cfg.Worker.SearchParallelism = *flagParallel
	}
}
