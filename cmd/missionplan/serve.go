package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/missionplan/internal/a2a"
	"github.com/dusk-indust/missionplan/internal/agent"
	"github.com/dusk-indust/missionplan/internal/config"
	"github.com/dusk-indust/missionplan/internal/mcptools"
)

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mission pipeline as an A2A agent",
		Long: `Serve the mission pipeline as an A2A agent. Each message/send carrying a
mission request runs one pipeline; requests are processed one at a time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w, err := a.wire(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer w.Close()

			if addr == "" {
				addr = a.cfg.ServeAddr
			}
			var opts []a2a.ServerOption
			if token := a.cfg.Token(); token != "" {
				opts = append(opts, a2a.WithRequiredToken(token))
			}
			mission := agent.NewMissionAgent(version, w.missionFunc(), opts...)
			fmt.Fprintf(cmd.OutOrStdout(), "serving mission agent on %s (capability %s)\n", addr, w.capability)
			return mission.Serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: serveAddr from config)")
	return cmd
}

func serveMCPCmd(a *app) *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the mission tools over MCP",
		Long: `Serve the mission tools over MCP, on stdio unless an HTTP address is
given. compile_plan, count_plan_tasks and align_macros are always available;
the verification, run and history tools need their components configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// stdin belongs to the MCP transport.
			if a.cfg.Arbiter == config.ConsoleArbiter {
				log.Printf("WARNING: console arbiter unavailable under MCP; arbitration disabled")
				a.cfg.Arbiter = ""
			}

			var svc *mcptools.MissionService
			w, err := a.wire(ctx, nil, nil)
			if err != nil {
				log.Printf("WARNING: pipeline unavailable over MCP: %v", err)
				template, terr := a.template()
				if terr != nil {
					return terr
				}
				svc = mcptools.NewMissionService(template)
			} else {
				defer w.Close()
				opts := []mcptools.ServiceOption{mcptools.WithPipeline(w.missions)}
				if w.translator != nil {
					opts = append(opts, mcptools.WithTranslator(w.translator))
				}
				if w.verifier != nil {
					opts = append(opts, mcptools.WithVerifier(w.verifier))
				}
				if w.history != nil {
					opts = append(opts, mcptools.WithRunLister(w.history))
				}
				svc = mcptools.NewMissionService(w.template, opts...)
			}

			server := mcptools.NewMissionMCPServer(svc)
			if httpAddr == "" {
				httpAddr = a.cfg.MCPAddr
			}
			if httpAddr != "" {
				log.Printf("mcp: listening on %s", httpAddr)
				return mcptools.RunMCPServer(ctx, server, httpAddr)
			}
			return mcptools.RunMCPServerStdio(ctx, server)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}
