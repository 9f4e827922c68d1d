package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/missionplan/internal/export"
	"github.com/dusk-indust/missionplan/internal/history"
	"github.com/dusk-indust/missionplan/internal/status"
)

func historyCmd(a *app) *cobra.Command {
	var (
		limit   int
		summary bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded mission runs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(a.cfg.History())
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			r := status.New(a.pretty)

			if len(args) == 1 {
				rep, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					data, err := export.RunReport(rep)
					if err != nil {
						return err
					}
					_, err = out.Write(data)
					return err
				}
				fmt.Fprint(out, r.Run(rep))
				return nil
			}

			if summary {
				sum, err := store.Summarize(ctx)
				if err != nil {
					return err
				}
				fmt.Fprint(out, r.Summary(sum))
				return a.printCacheStats(cmd)
			}

			runs, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprint(out, r.Runs(runs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	cmd.Flags().BoolVar(&summary, "summary", false, "print aggregate statistics")
	cmd.Flags().BoolVar(&asJSON, "json", false, "with a run ID, print its JSON report")
	return cmd
}

// printCacheStats appends the automaton cache size to the summary.
func (a *app) printCacheStats(cmd *cobra.Command) error {
	store, err := openAutomatonStore(cmd.Context(), a.cfg.AutomatonStore())
	if err != nil {
		return err
	}
	defer store.Close()
	st, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Automaton cache: %d formulas, %d states, %d transitions\n",
		st.FormulaCount, st.StateCount, st.TransitionCount)
	return nil
}
