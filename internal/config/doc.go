// Package config provides centralized configuration management for the lab
// analyzer. It loads configuration from multiple sources, validates it, and
// resolves the file system paths used by the service and the CLI.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern LAB_<SECTION>_<FIELD>:
//
//	LAB_SERVER_PORT=8080
//	LAB_DATABASE_FILE=/var/lib/lab/experiments.db
//	LAB_ANALYSIS_CONTROL_MARKER=Control
//	LAB_ANALYSIS_END_TIME=48
//	LAB_LOGGING_LEVEL=debug
//
// # Path Management
//
// Relative paths are resolved against Paths.BaseDir, which defaults to the
// executable directory:
//
//	paths, err := config.GetPaths(cfg)
//	out := paths.GetExportPath("analysis.xlsx")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// Use config.Default() for a configuration with sensible defaults that
// doesn't require environment variables or files.
package config
