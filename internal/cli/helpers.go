package cli

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"labanalyzer/internal/config"
	"labanalyzer/internal/infrastructure"
	"labanalyzer/internal/repository"
)

// Offline commands keep stderr quiet unless asked otherwise
const offlineLogLevel = "warn"

func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// offlineLogger writes JSON logs to the command's stderr
func (o *globalOptions) offlineLogger(cmd *cobra.Command) *slog.Logger {
	level := o.logLevel
	if level == "" {
		level = offlineLogLevel
	}
	return infrastructure.NewLogger(cmd.ErrOrStderr(), level)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repository.Store, error) {
	dbPath := cfg.Database.File
	if dbPath != repository.MemoryPath {
		paths, err := config.GetPaths(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to get paths: %w", err)
		}
		dbPath = paths.DatabaseFile
	}
	store, err := repository.Open(ctx, dbPath, repository.Options{
		BusyRetries:  cfg.Database.BusyRetries,
		RetryBackoff: cfg.Database.RetryBackoff,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open experiment database: %w", err)
	}
	return store, nil
}

// commandContext tags the command's context with a trace ID so every log
// line of one run can be correlated
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return infrastructure.EnsureTraceID(ctx)
}

// num formats a reading for a table cell; missing values print as "-"
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func percent(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + "%"
}
