package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMissionMCPServer creates an MCP server with the mission tools
// registered. Tools backed by an unconfigured component are left out.
func NewMissionMCPServer(svc *MissionService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "missionplan",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compile_plan",
		Description: "Compile a behavior tree XML mission plan into a Promela model. Returns the model source and the task and variable names it declares.",
	}, svc.CompilePlan)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "count_plan_tasks",
		Description: "Count the observable tasks of a mission plan: one per action plus two per conditional branch.",
	}, svc.CountPlanTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "align_macros",
		Description: "Rewrite the identifiers in a logic specification's #define macros to the task and variable names the compiled plan declares.",
	}, svc.AlignMacros)

	if svc.translator != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "check_consistency",
			Description: "Compare a plan's task count with the forward transition count of the logic specification's automaton.",
		}, svc.CheckConsistency)
	}

	if svc.verifier != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "verify_mission",
			Description: "Model-check a mission plan against a logic specification with Spin. Returns passed, violated (with the counterexample) or setup-failed.",
		}, svc.VerifyMission)
	}

	if svc.pipeline != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "run_mission",
			Description: "Generate, cross-check and verify a mission plan for a natural-language request, retrying with feedback until it verifies or the retry budget runs out.",
		}, svc.RunMission)
	}

	if svc.runs != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "list_runs",
			Description: "List recorded mission runs, newest first.",
		}, svc.ListRuns)
	}

	return server
}

// RunMCPServer starts an HTTP server exposing the mission MCP tools.
func RunMCPServer(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking
// until stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
