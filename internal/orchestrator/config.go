package orchestrator

import (
	"fmt"
	"strings"
)

// CapabilityLevel describes which external tools the controller can use.
type CapabilityLevel int

const (
	// CapPlanOnly has no model checker or translator. Plans are accepted
	// unverified: NeedPlan goes straight to Done.
	CapPlanOnly CapabilityLevel = iota

	// CapVerify has the checker and translator but no arbiter. Sampled
	// runs are not reviewed.
	CapVerify

	// CapFull runs every phase.
	CapFull
)

func (c CapabilityLevel) String() string {
	switch c {
	case CapPlanOnly:
		return "plan-only"
	case CapVerify:
		return "verify"
	case CapFull:
		return "full"
	default:
		return "unknown"
	}
}

// MarshalText renders the level by name.
func (c CapabilityLevel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts a level name.
func (c *CapabilityLevel) UnmarshalText(text []byte) error {
	switch strings.TrimSpace(string(text)) {
	case "plan-only":
		*c = CapPlanOnly
	case "verify":
		*c = CapVerify
	case "full":
		*c = CapFull
	default:
		return fmt.Errorf("orchestrator: unknown capability level %q", text)
	}
	return nil
}

// DefaultMaxRetries bounds retries when Config leaves it unset.
const DefaultMaxRetries = 5

// DefaultLogDirectory receives plan artifacts when Config leaves it unset.
const DefaultLogDirectory = "logs"

// Config holds runtime configuration for the controller.
type Config struct {
	// MaxRetries bounds the single retry counter shared by every phase.
	MaxRetries int

	// LogDirectory receives the accepted plan artifact.
	LogDirectory string

	// Template is the Promela prefix the plan is compiled against.
	Template string

	// SampleRuns is how many runs the arbiter is shown.
	SampleRuns int

	// Capability is the detected runtime capability level.
	Capability CapabilityLevel
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.LogDirectory == "" {
		c.LogDirectory = DefaultLogDirectory
	}
	return c
}
