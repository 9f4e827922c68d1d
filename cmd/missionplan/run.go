package main

import (
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/missionplan/internal/export"
	"github.com/dusk-indust/missionplan/internal/orchestrator"
	"github.com/dusk-indust/missionplan/internal/status"
)

func runCmd(a *app) *cobra.Command {
	var (
		asJSON     bool
		reportPath string
	)
	cmd := &cobra.Command{
		Use:   "run <request>",
		Short: "Plan and verify one mission",
		Long: `Plan and verify one mission. The request is the remaining arguments
joined by spaces. The accepted plan is written to the log directory and,
when transport is enabled, sent to the robot.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w, err := a.wire(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer w.Close()

			out := cmd.OutOrStdout()
			if len(w.missing) > 0 {
				fmt.Fprintf(out, "capability: %s (missing: %s)\n", w.capability, strings.Join(w.missing, ", "))
			}

			var wg sync.WaitGroup
			if !asJSON {
				events := w.pipeline.Progress()
				wg.Add(1)
				go func() {
					defer wg.Done()
					for ev := range events {
						fmt.Fprintln(out, orchestrator.FormatProgress(ev))
					}
				}()
			}

			request := strings.Join(args, " ")
			rep, runErr := w.missions.Run(ctx, request)
			w.pipeline.Close()
			wg.Wait()
			if rep == nil {
				return runErr
			}

			if reportPath != "" {
				if err := export.WriteRunReport(reportPath, rep); err != nil {
					return err
				}
			}
			if asJSON {
				data, err := export.RunReport(rep)
				if err != nil {
					return err
				}
				if _, err := out.Write(data); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, status.New(a.pretty).Outcome(rep))
				if rep.TransportError != "" {
					fmt.Fprintf(out, "transport: %s\n", rep.TransportError)
				}
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run report as JSON instead of progress")
	cmd.Flags().StringVar(&reportPath, "report", "", "also write the JSON run report to this file")
	return cmd
}
