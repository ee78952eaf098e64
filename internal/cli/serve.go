package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"labanalyzer/internal/app"
	"labanalyzer/internal/config"
	"labanalyzer/internal/infrastructure"
)

func newServeCommand(g *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		Long: `Start the analysis server. Configuration comes from the YAML file given
with --config (or the first of labanalyzer.yaml, config.yaml and
configs/config.yaml) merged with LAB_* environment variables.

Examples:
  labanalyzer serve
  labanalyzer serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			paths, err := config.GetPaths(cfg)
			if err != nil {
				return err
			}
			if !filepath.IsAbs(cfg.Logging.FilePath) {
				cfg.Logging.FilePath = filepath.Join(paths.BaseDir, cfg.Logging.FilePath)
			}

			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer infrastructure.CloseLogFile()

			ctx := commandContext(cmd)
			application, err := app.NewApplication(ctx, cfg, logger)
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides config)")
	return cmd
}
