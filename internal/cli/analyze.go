package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"labanalyzer/internal/analysis"
	"labanalyzer/internal/dataprocessing"
	"labanalyzer/internal/exporter"
	"labanalyzer/internal/files"
	"labanalyzer/internal/services"
	"labanalyzer/pkg/contracts/domain"
)

type analyzeOptions struct {
	input        string
	experimentID int64
	start        float64
	end          float64
	control      string
	out          string
	workbook     bool
	charts       bool
}

func newAnalyzeCommand(g *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis on a data file or stored experiment",
		Long: `Load a dataset, compute growth rates over the given window, compute
percent inhibition against the control group, and print the result and
statistics tables. With --out the CSV exports (and optionally the workbook
and charts) are written to that directory.

Examples:
  labanalyzer analyze --input plate1.csv
  labanalyzer analyze --experiment 3 --start 2 --end 18 --out results --xlsx --charts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, g, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "CSV or XLSX file with measurements")
	f.Int64VarP(&opts.experimentID, "experiment", "e", 0, "ID of a stored experiment")
	f.Float64Var(&opts.start, "start", analysis.DefaultStartTime, "Start of the growth window in hours")
	f.Float64Var(&opts.end, "end", analysis.DefaultEndTime, "End of the growth window in hours")
	f.StringVar(&opts.control, "control", "", "Control group marker (default from config)")
	f.StringVarP(&opts.out, "out", "o", "", "Directory to write exports to")
	f.BoolVar(&opts.workbook, "xlsx", false, "Also write the Excel workbook")
	f.BoolVar(&opts.charts, "charts", false, "Also write PNG charts")
	cmd.MarkFlagsMutuallyExclusive("input", "experiment")
	cmd.MarkFlagsOneRequired("input", "experiment")
	return cmd
}

func runAnalyze(cmd *cobra.Command, g *globalOptions, opts *analyzeOptions) error {
	if opts.out == "" && (opts.workbook || opts.charts) {
		return errors.New("--xlsx and --charts need an --out directory")
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger := g.offlineLogger(cmd)
	ctx := commandContext(cmd)

	start, end := cfg.Analysis.StartTime, cfg.Analysis.EndTime
	if cmd.Flags().Changed("start") {
		start = opts.start
	}
	if cmd.Flags().Changed("end") {
		end = opts.end
	}
	if err := analysis.ValidateTimeWindow(start, end); err != nil {
		return err
	}

	validator := files.NewValidator(logger)
	if opts.input != "" {
		if err := validator.ValidateMeasurementFile(opts.input); err != nil {
			return err
		}
	}
	if opts.out != "" {
		if err := validator.ValidateOutputDirectory(opts.out); err != nil {
			return err
		}
	}

	var store services.ExperimentStore
	if opts.input == "" {
		s, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	svc, err := services.NewAnalysisService(store, nil, nil, exporter.NewCSVWriter(nil, logger),
		services.Options{
			Session: analysis.SessionConfig{
				ControlMarker: cfg.Analysis.ControlMarker,
				StartTime:     start,
				EndTime:       end,
			},
		}, logger)
	if err != nil {
		return err
	}

	var info *services.SessionInfo
	if opts.input != "" {
		ds, err := dataprocessing.LoadFile(opts.input, logger)
		if err != nil {
			return err
		}
		info, err = svc.OpenSession(ctx, fileExperiment(opts.input, ds), ds, opts.control)
		if err != nil {
			return err
		}
	} else {
		info, err = svc.CreateSession(ctx, opts.experimentID, opts.control)
		if err != nil {
			return err
		}
	}
	defer svc.CloseSession(ctx, info.ID)

	out := cmd.OutOrStdout()
	printSession(out, info, start, end)

	results, err := svc.ComputeGrowth(ctx, info.ID, start, end)
	if err != nil {
		return err
	}

	var compounds []analysis.CompoundSummary
	report, err := svc.ComputeInhibition(ctx, info.ID)
	switch {
	case err == nil:
		results, compounds = report.Results, report.Compounds
	case inhibitionUnavailable(err):
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: inhibition not computed: %v\n", err)
	default:
		return err
	}

	printGrowth(out, results)
	if len(compounds) > 0 {
		printCompounds(out, compounds)
	}

	stats, err := svc.Statistics(ctx, info.ID)
	if err != nil {
		return err
	}
	printStatistics(out, stats)

	if opts.out == "" {
		return nil
	}
	written, err := svc.ExportBundle(ctx, info.ID, opts.out, services.BundleOptions{
		Workbook: opts.workbook,
		Charts:   opts.charts,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Exports")
	fmt.Fprintln(out, "-------")
	for _, p := range written {
		fmt.Fprintf(out, "  %s\n", p)
	}
	return nil
}

// inhibitionUnavailable reports errors that leave the growth table usable
func inhibitionUnavailable(err error) bool {
	return errors.Is(err, analysis.ErrNoControlGroup) ||
		errors.Is(err, analysis.ErrInvalidBaseline) ||
		errors.Is(err, analysis.ErrNoGrowthResults)
}

// fileExperiment describes a dataset loaded from a file, named after its
// first row or the file itself
func fileExperiment(path string, ds *analysis.Dataset) domain.ExperimentInfo {
	info := domain.ExperimentInfo{Name: files.BaseName(path)}
	if rows := ds.Rows(); len(rows) > 0 {
		if rows[0].ExperimentName != "" {
			info.Name = rows[0].ExperimentName
		}
		info.Researcher = rows[0].Researcher
	}
	return info
}

func printSession(out io.Writer, info *services.SessionInfo, start, end float64) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Experiment:  %s\n", info.Experiment.Name)
	if info.Experiment.Researcher != "" {
		fmt.Fprintf(out, "  Researcher:  %s\n", info.Experiment.Researcher)
	}
	fmt.Fprintf(out, "  Rows:        %d\n", info.Rows)
	fmt.Fprintf(out, "  Compounds:   %s\n", strings.Join(info.Compounds, ", "))
	fmt.Fprintf(out, "  Control:     %s\n", info.ControlMarker)
	fmt.Fprintf(out, "  Window:      %gh - %gh\n", start, end)
	fmt.Fprintln(out)
}

func printGrowth(out io.Writer, results []analysis.GrowthResult) {
	fmt.Fprintln(out, "Growth")
	fmt.Fprintln(out, "------")
	if len(results) == 0 {
		fmt.Fprintln(out, "  No growth rates in the selected window.")
		fmt.Fprintln(out)
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPOUND\tREPLICATE\tINITIAL OD\tFINAL OD\tGROWTH RATE\tINHIBITION")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			r.CompoundName, r.ReplicateNumber, num(r.InitialOD), num(r.FinalOD),
			num(r.GrowthRate), percent(r.InhibitionPercent))
	}
	w.Flush()
	fmt.Fprintln(out)
}

func printCompounds(out io.Writer, compounds []analysis.CompoundSummary) {
	fmt.Fprintln(out, "Inhibition by compound")
	fmt.Fprintln(out, "----------------------")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPOUND\tMEAN %\tSTD %\tN")
	for _, c := range compounds {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.CompoundName, num(c.MeanInhibition), num(c.StdInhibition), c.N)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func printStatistics(out io.Writer, stats *analysis.StatsReport) {
	fmt.Fprintln(out, "Statistics")
	fmt.Fprintln(out, "----------")
	fmt.Fprintf(out, "  Measurements:  %d\n", stats.Overall.Count)
	fmt.Fprintf(out, "  Compounds:     %d\n", stats.Overall.Compounds)
	fmt.Fprintf(out, "  Replicates:    %d\n", stats.Overall.Replicates)
	fmt.Fprintf(out, "  Time range:    %s\n", stats.Overall.TimeRange)
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tCOUNT\tMEAN\tSTD\tMIN\t25%\t50%\t75%\tMAX")
	for _, c := range stats.Columns() {
		s := c.Summary
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name, s.Count, num(s.Mean), num(s.Std), num(s.Min),
			num(s.Q25), num(s.Median), num(s.Q75), num(s.Max))
	}
	w.Flush()
}
