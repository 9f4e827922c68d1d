package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/dusk-indust/missionplan/internal/a2a"
)

// Compile-time check.
var _ Detector = (*DefaultDetector)(nil)

// ConsoleArbiter is the arbiter setting that selects the interactive
// human arbiter. It is always available.
const ConsoleArbiter = "console"

// DefaultDetector looks for the model checker and translator on PATH and
// contacts the arbiter's A2A endpoint.
type DefaultDetector struct {
	client         a2a.Client
	checkerPath    string
	translatorPath string
	arbiter        string
	lookPath       func(string) (string, error)
	dialTimeout    time.Duration
}

// NewDefaultDetector creates a DefaultDetector. arbiter is an A2A base
// URL, ConsoleArbiter, or empty for none.
func NewDefaultDetector(client a2a.Client, checkerPath, translatorPath, arbiter string) *DefaultDetector {
	return &DefaultDetector{
		client:         client,
		checkerPath:    checkerPath,
		translatorPath: translatorPath,
		arbiter:        arbiter,
		lookPath:       exec.LookPath,
		dialTimeout:    2 * time.Second,
	}
}

// Detect looks for the checker, the translator and the arbiter.
func (d *DefaultDetector) Detect(ctx context.Context) (CapabilityLevel, []string, error) {
	var missing []string
	for _, bin := range []string{d.checkerPath, d.translatorPath} {
		if bin == "" {
			continue
		}
		if _, err := d.lookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		log.Printf("WARNING: detector: %v not found; plans will not be verified", missing)
		return CapPlanOnly, missing, nil
	}

	level := CapFull
	if !d.arbiterReachable(ctx) {
		level = CapVerify
		missing = append(missing, "arbiter")
	}
	log.Printf("detector: level=%s checker=%s translator=%s arbiter=%q", level, d.checkerPath, d.translatorPath, d.arbiter)
	return level, missing, nil
}

// arbiterReachable reports whether an arbiter is reachable.
func (d *DefaultDetector) arbiterReachable(ctx context.Context) (ok bool) {
	switch d.arbiter {
	case "":
		return false
	case ConsoleArbiter:
		return true
	}
	if d.client == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("detector: panic probing %s: %v", d.arbiter, r)
			ok = false
		}
	}()

	dialCtx, cancel := context.WithTimeout(ctx, d.dialTimeout)
	defer cancel()

	card, err := d.client.DiscoverAgent(dialCtx, d.arbiter)
	if err != nil {
		log.Printf("WARNING: detector: arbiter %s unreachable: %v", d.arbiter, err)
		return false
	}
	return card != nil
}

// String describes the detection targets.
func (d *DefaultDetector) String() string {
	return fmt.Sprintf("detector(checker=%s, translator=%s, arbiter=%s)", d.checkerPath, d.translatorPath, d.arbiter)
}
