// Command missionplan turns natural-language robot mission requests into
// model-checked behavior-tree plans.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/missionplan/internal/config"
)

// version is set by goreleaser at build time.
var version = "dev"

// app carries state shared by every subcommand.
type app struct {
	configDir string
	pretty    bool
	verbose   bool

	cfg     *config.Config
	logFile io.Closer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "missionplan",
		Short: "Generate and model-check robot mission plans",
		Long: `missionplan asks a plan generator for a behavior-tree mission plan and a
logic generator for a temporal-logic specification of the same mission,
cross-checks the two, model-checks the plan with Spin and retries with
corrective feedback until the plan verifies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["noConfig"] == "true" {
				return nil
			}
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logFile != nil {
				a.logFile.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configDir, "config", ".", "directory containing missionplan.yml")
	root.PersistentFlags().BoolVar(&a.pretty, "pretty", true, "colored terminal output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "log to stderr as well as the log file")

	root.AddCommand(
		runCmd(a),
		serveCmd(a),
		serveMCPCmd(a),
		receiveCmd(a),
		compileCmd(a),
		diagramCmd(a),
		historyCmd(a),
		initCmd(a),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"noConfig": "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// load reads the configuration, loads the env file and sets up logging.
func (a *app) load() error {
	cfg, err := config.LoadDir(a.configDir)
	if err != nil {
		return err
	}
	if err := cfg.LoadEnv(); err != nil {
		return err
	}
	a.cfg = cfg
	return a.setupLogging()
}

// setupLogging sends log output to <logDirectory>/missionplan.log, and to
// stderr too when verbose.
func (a *app) setupLogging() error {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	dir := a.cfg.LogDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "missionplan.log"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f
	if a.verbose {
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	} else {
		log.SetOutput(f)
	}
	return nil
}
