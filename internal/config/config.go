// Package config loads missionplan.yml and the optional dotenv file that
// carries collaborator secrets.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/missionplan/internal/automaton"
	"github.com/dusk-indust/missionplan/internal/orchestrator"
	"github.com/dusk-indust/missionplan/internal/verify"
)

// TokenEnv is the environment variable holding the collaborator bearer token.
const TokenEnv = "MISSIONPLAN_TOKEN"

// ConsoleArbiter selects the interactive human arbiter.
const ConsoleArbiter = orchestrator.ConsoleArbiter

// Defaults applied by Load and LoadDir for unset keys. Those the pipeline
// components also fall back to are defined by the components.
const (
	DefaultMaxRetries     = orchestrator.DefaultMaxRetries
	DefaultLogDirectory   = orchestrator.DefaultLogDirectory
	DefaultSpinPath       = verify.DefaultCheckerPath
	DefaultTranslatorPath = automaton.DefaultTranslatorPath
	DefaultSampleRuns     = automaton.DefaultSampleRuns
	DefaultMaxWalkSteps   = automaton.DefaultMaxSteps
	DefaultTransportHost  = "127.0.0.1"
	DefaultTransportPort  = 12345
	DefaultServeAddr      = ":8080"
)

// Config holds project-level settings loaded from missionplan.yml.
type Config struct {
	LogDirectory string `yaml:"logDirectory,omitempty"`
	MaxRetries   int    `yaml:"maxRetries,omitempty"`
	EnvFile      string `yaml:"envFile,omitempty"`

	// Collaborator A2A endpoints. Arbiter may also be "console".
	Planner string `yaml:"planner,omitempty"`
	Logic   string `yaml:"logic,omitempty"`
	Arbiter string `yaml:"arbiter,omitempty"`

	Verification Verification `yaml:"verification,omitempty"`
	Transport    Transport    `yaml:"transport,omitempty"`

	HistoryPath        string `yaml:"historyPath,omitempty"`
	AutomatonStorePath string `yaml:"automatonStorePath,omitempty"`
	ServeAddr          string `yaml:"serveAddr,omitempty"`
	MCPAddr            string `yaml:"mcpAddr,omitempty"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// Verification configures the model checker and translator.
type Verification struct {
	// Enabled defaults to true; set false to force plan-only runs.
	Enabled        *bool  `yaml:"enabled,omitempty"`
	TemplatePath   string `yaml:"templatePath,omitempty"`
	SpinPath       string `yaml:"spinPath,omitempty"`
	TranslatorPath string `yaml:"translatorPath,omitempty"`
	WorkDir        string `yaml:"workDir,omitempty"`
	SampleRuns     int    `yaml:"sampleRuns,omitempty"`
	MaxWalkSteps   int    `yaml:"maxWalkSteps,omitempty"`
}

// IsEnabled reports whether verification should run.
func (v Verification) IsEnabled() bool {
	return v.Enabled == nil || *v.Enabled
}

// Transport configures delivery of accepted plans to the robot.
type Transport struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads one YAML file. Relative paths in it resolve against the
// file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadDir attempts to read missionplan.yml or missionplan.yaml from the
// given directory. Returns a default config (not an error) if no config
// file exists.
func LoadDir(dir string) (*Config, error) {
	for _, name := range []string{"missionplan.yml", "missionplan.yaml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return Load(path)
	}
	cfg := Default()
	cfg.dir = dir
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.LogDirectory == "" {
		c.LogDirectory = DefaultLogDirectory
	}
	v := &c.Verification
	if v.SpinPath == "" {
		v.SpinPath = DefaultSpinPath
	}
	if v.TranslatorPath == "" {
		v.TranslatorPath = DefaultTranslatorPath
	}
	if v.SampleRuns <= 0 {
		v.SampleRuns = DefaultSampleRuns
	}
	if v.MaxWalkSteps <= 0 {
		v.MaxWalkSteps = DefaultMaxWalkSteps
	}
	if c.Transport.Host == "" {
		c.Transport.Host = DefaultTransportHost
	}
	if c.Transport.Port == 0 {
		c.Transport.Port = DefaultTransportPort
	}
	if c.ServeAddr == "" {
		c.ServeAddr = DefaultServeAddr
	}
}

// Resolve returns path joined to the config's directory when relative.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// LogDir is the resolved log directory.
func (c *Config) LogDir() string { return c.Resolve(c.LogDirectory) }

// WorkDir is where checker runs happen; it defaults to the log directory.
func (c *Config) WorkDir() string {
	if c.Verification.WorkDir != "" {
		return c.Resolve(c.Verification.WorkDir)
	}
	return c.LogDir()
}

// History is the resolved run-ledger path.
func (c *Config) History() string {
	if c.HistoryPath != "" {
		return c.Resolve(c.HistoryPath)
	}
	return filepath.Join(c.LogDir(), "history.db")
}

// AutomatonStore is the resolved automaton cache path, or "" for an
// in-memory cache.
func (c *Config) AutomatonStore() string { return c.Resolve(c.AutomatonStorePath) }

// LoadEnv loads EnvFile into the process environment. Variables that are
// already set win. A missing file is not an error when EnvFile was not
// configured explicitly.
func (c *Config) LoadEnv() error {
	if c.EnvFile == "" {
		if _, err := os.Stat(c.Resolve(".env")); err != nil {
			return nil
		}
		return godotenv.Load(c.Resolve(".env"))
	}
	if err := godotenv.Load(c.Resolve(c.EnvFile)); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}

// Token returns the collaborator bearer token from the environment.
func (c *Config) Token() string {
	return strings.TrimSpace(os.Getenv(TokenEnv))
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Planner == "" {
		errs = append(errs, errors.New("planner endpoint is required"))
	} else if err := checkEndpoint(c.Planner); err != nil {
		errs = append(errs, fmt.Errorf("planner: %w", err))
	}
	if c.Logic != "" {
		if err := checkEndpoint(c.Logic); err != nil {
			errs = append(errs, fmt.Errorf("logic: %w", err))
		}
	}
	if c.Arbiter != "" && c.Arbiter != ConsoleArbiter {
		if err := checkEndpoint(c.Arbiter); err != nil {
			errs = append(errs, fmt.Errorf("arbiter: %w", err))
		}
	}
	if c.Transport.Enabled && (c.Transport.Port < 1 || c.Transport.Port > 65535) {
		errs = append(errs, fmt.Errorf("transport port %d out of range", c.Transport.Port))
	}
	if c.Verification.IsEnabled() && c.Verification.TemplatePath != "" {
		if _, err := os.Stat(c.Resolve(c.Verification.TemplatePath)); err != nil {
			errs = append(errs, fmt.Errorf("verification template: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

func checkEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint %q must be an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %q has no host", raw)
	}
	return nil
}
