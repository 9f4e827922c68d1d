package orchestrator

import "context"

// Detector inspects the local environment to determine available capabilities.
type Detector interface {
	// Detect returns the highest usable capability level and the names of
	// the tools whose absence capped it.
	Detect(ctx context.Context) (CapabilityLevel, []string, error)
}
