package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/missionplan/internal/promptdata"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// missionplanMCPEntry is the MCP server configuration for the missionplan binary.
var missionplanMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "missionplan",
  "args": ["serve-mcp"]
}`)

const configSkeleton = `# missionplan configuration. Relative paths resolve against this file.
maxRetries: 5
logDirectory: logs
envFile: .env

# A2A endpoints of the collaborators. The arbiter may be "console".
planner: http://localhost:9001
logic: http://localhost:9002
arbiter: console

verification:
  templatePath: template.pml
  spinPath: spin
  translatorPath: ltl2tgba
  sampleRuns: 5
  maxWalkSteps: 1000

transport:
  enabled: false
  host: 127.0.0.1
  port: 12345
`

func initCmd(_ *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:         "init [dir]",
		Short:       "Write a starter missionplan.yml, template and MCP configuration",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"noConfig": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

// runInit writes the starter files and MCP configuration into the project
// directory.
func runInit(w io.Writer, projectRoot string, force bool) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return err
	}

	files := []struct {
		name string
		data string
	}{
		{"missionplan.yml", configSkeleton},
		{"template.pml", promptdata.Template()},
	}
	for _, f := range files {
		dest := filepath.Join(abs, f.name)
		if !force {
			if _, err := os.Stat(dest); err == nil {
				fmt.Fprintf(w, "  skipped %s (exists, use --force to overwrite)\n", dotRelative(abs, dest))
				continue
			}
		}
		if err := os.WriteFile(dest, []byte(f.data), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
		fmt.Fprintf(w, "  created %s\n", dotRelative(abs, dest))
	}

	if err := mergeMCPConfig(w, filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nSetup complete. Edit missionplan.yml to point at your collaborators.")
	return nil
}

// mergeMCPConfig creates or merges the missionplan entry into .mcp.json.
func mergeMCPConfig(w io.Writer, mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["missionplan"]; exists && !force {
		fmt.Fprintln(w, "  skipped .mcp.json missionplan entry (exists, use --force to overwrite)")
		return nil
	}

	cfg.MCPServers["missionplan"] = missionplanMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(w, "  %s .mcp.json with missionplan MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to the project root, prefixed
// with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
