package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newExperimentsCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "experiments",
		Aliases: []string{"ls"},
		Short:   "List the experiments in the database",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			store, err := openStore(ctx, cfg, g.offlineLogger(cmd))
			if err != nil {
				return err
			}
			defer store.Close()

			experiments, err := store.ListExperiments(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(experiments) == 0 {
				fmt.Fprintln(out, "No experiments found. Add one with: labanalyzer import --input FILE")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tRESEARCHER\tSTARTED")
			for _, e := range experiments {
				info, err := store.GetExperimentInfo(ctx, e.ID)
				if err != nil {
					return err
				}
				started := "-"
				if !info.StartedAt.IsZero() {
					started = info.StartedAt.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.Name, info.Researcher, started)
			}
			return w.Flush()
		},
	}
}
