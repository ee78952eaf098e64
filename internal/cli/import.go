package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"labanalyzer/internal/dataprocessing"
	"labanalyzer/internal/files"
	"labanalyzer/internal/repository"
)

type importOptions struct {
	input       string
	dir         string
	name        string
	researcher  string
	description string
}

func newImportCommand(g *globalOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import measurement files as new experiments",
		Long: `Parse CSV or XLSX measurement files and store each one as a new
experiment. The name and researcher default to the values in the file's
first row; a file without an experiment name is named after the file.

Examples:
  labanalyzer import --input plate1.csv --name "Plate 1" --researcher "A. Smith"
  labanalyzer import --dir incoming --researcher "A. Smith"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, g, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "CSV or XLSX file with measurements")
	f.StringVarP(&opts.dir, "dir", "d", "", "Import every measurement file in this directory, oldest first")
	f.StringVar(&opts.name, "name", "", "Experiment name (single file only)")
	f.StringVar(&opts.researcher, "researcher", "", "Researcher full name")
	f.StringVar(&opts.description, "description", "", "Free-text description")
	cmd.MarkFlagsMutuallyExclusive("input", "dir")
	cmd.MarkFlagsMutuallyExclusive("name", "dir")
	cmd.MarkFlagsOneRequired("input", "dir")
	return cmd
}

func runImport(cmd *cobra.Command, g *globalOptions, opts *importOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger := g.offlineLogger(cmd)
	ctx := commandContext(cmd)

	paths := []string{opts.input}
	if opts.dir != "" {
		found, err := files.NewDiscovery("").FindMeasurementFiles(opts.dir)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("no measurement files in %s", opts.dir)
		}
		paths = paths[:0]
		for _, f := range found {
			paths = append(paths, f.Path)
		}
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	imp := &importer{
		store:     store,
		validator: files.NewValidator(logger),
		logger:    logger,
	}
	for _, path := range paths {
		res, err := imp.importFile(ctx, path, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported experiment %d (%s): %d measurements, %d compounds\n",
			res.id, res.name, res.stats.Rows, res.stats.Compounds)
	}
	return nil
}

type imported struct {
	id    int64
	name  string
	stats dataprocessing.ProcessingStatistics
}

type importer struct {
	store     *repository.Store
	validator *files.Validator
	logger    *slog.Logger
}

func (i *importer) importFile(ctx context.Context, path string, opts *importOptions) (*imported, error) {
	if err := i.validator.ValidateMeasurementFile(path); err != nil {
		return nil, err
	}
	parsed, err := dataprocessing.NewParser(i.logger).ParseFile(path)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, errors.New("file contains no measurements")
	}

	processed, stats := dataprocessing.NewProcessorWithOptions(i.logger, dataprocessing.ProcessingOptions{
		ExperimentName: opts.name,
		Researcher:     opts.researcher,
	}).Process(parsed)

	exp := repository.NewExperiment{
		Name:        opts.name,
		Researcher:  opts.researcher,
		Description: opts.description,
	}
	if exp.Name == "" {
		exp.Name = processed[0].ExperimentName
	}
	if exp.Name == "" {
		exp.Name = files.BaseName(path)
	}
	if exp.Researcher == "" {
		exp.Researcher = processed[0].Researcher
	}
	if exp.Researcher == "" {
		return nil, errors.New("the file does not name its researcher; pass --researcher")
	}

	id, err := i.store.ImportExperiment(ctx, exp, processed)
	if err != nil {
		return nil, err
	}
	i.logger.Info("experiment imported",
		slog.Int64("experiment_id", id),
		slog.String("file", path),
		slog.Int("rows", stats.Rows),
		slog.Int("missing_od", stats.MissingOD))
	return &imported{id: id, name: exp.Name, stats: stats}, nil
}
