package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/missionplan/internal/automaton"
	"github.com/dusk-indust/missionplan/internal/export"
	"github.com/dusk-indust/missionplan/internal/graph"
	"github.com/dusk-indust/missionplan/internal/runner"
)

func diagramCmd(a *app) *cobra.Command {
	var (
		logic  bool
		cached bool
	)
	cmd := &cobra.Command{
		Use:   "diagram <file>",
		Short: "Print a Mermaid diagram of a plan or a logic specification",
		Long: `Print a Mermaid diagram. By default the file is a behavior-tree plan.
With --logic it is a logic specification, translated to its automaton
through the automaton cache; --cached reads the cache only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !logic {
				p, err := readPlan(args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(out, export.PlanMermaid(p))
				return nil
			}

			spec, err := readLogic(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openAutomatonStore(ctx, a.cfg.AutomatonStore())
			if err != nil {
				return err
			}
			defer store.Close()

			if cached {
				mermaid, err := export.StoredAutomatonMermaid(ctx, store, spec.Formula)
				if err != nil {
					return err
				}
				fmt.Fprint(out, mermaid)
				return nil
			}

			tr := graph.NewCachingTranslator(
				automaton.NewExecTranslator(a.cfg.Verification.TranslatorPath, runner.NewOSRunner()), store)
			aut, err := tr.Translate(ctx, spec.Formula)
			if err != nil {
				return err
			}
			fmt.Fprint(out, export.AutomatonMermaid(aut))
			return nil
		},
	}
	cmd.Flags().BoolVar(&logic, "logic", false, "the file is a logic specification")
	cmd.Flags().BoolVar(&cached, "cached", false, "with --logic, read the automaton cache without translating")
	return cmd
}
