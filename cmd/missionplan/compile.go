package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/missionplan/internal/compiler"
	"github.com/dusk-indust/missionplan/internal/ltl"
	"github.com/dusk-indust/missionplan/internal/plan"
	"github.com/dusk-indust/missionplan/internal/verify"
)

func compileCmd(a *app) *cobra.Command {
	var (
		logicPath string
		count     bool
	)
	cmd := &cobra.Command{
		Use:   "compile <plan.xml>",
		Short: "Compile a plan to Promela",
		Long: `Compile a behavior-tree plan to a Promela model. With --logic, the
specification's macros are aligned to the plan and the complete checker
input is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPlan(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if count {
				fmt.Fprintf(out, "%d\n", plan.CountTasks(p))
				return nil
			}

			template, err := a.template()
			if err != nil {
				return err
			}
			model, cat, err := compiler.Compile(p, template)
			if err != nil {
				return err
			}
			if logicPath == "" {
				fmt.Fprint(out, model.Source)
				return nil
			}

			spec, err := readLogic(logicPath)
			if err != nil {
				return err
			}
			fmt.Fprint(out, verify.Assemble(model, ltl.Align(cat, spec.Macros), spec.Formula))
			return nil
		},
	}
	cmd.Flags().StringVar(&logicPath, "logic", "", "logic specification to align and append")
	cmd.Flags().BoolVar(&count, "count", false, "print the observable task count only")
	return cmd
}

func readPlan(path string) (*plan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	p, err := plan.ParseXML(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func readLogic(path string) (*ltl.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logic: %w", err)
	}
	spec, err := ltl.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return spec, nil
}
