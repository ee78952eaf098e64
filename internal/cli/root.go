package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the labanalyzer command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "labanalyzer",
		Short: "Growth and inhibition analysis for microbiology experiments",
		Long: `labanalyzer computes bacterial growth rates from optical density
time series, the percent inhibition of each compound against the control
group, and descriptive statistics of an experiment.

Run it as an HTTP service with "serve", or analyze a file or stored
experiment directly with "analyze".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newAnalyzeCommand(opts),
		newExperimentsCommand(opts),
		newImportCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
