package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/missionplan/internal/a2a"
)

func mockAgentCardHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(a2a.AgentCardPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a2a.AgentCard{Name: "judge", Version: "dev"})
	})
	return mux
}

// fakeLookPath finds only the named binaries.
func fakeLookPath(found ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestDetector_MissingChecker_PlanOnly(t *testing.T) {
	d := NewDefaultDetector(a2a.NewHTTPClient(), "spin", "ltl2tgba", ConsoleArbiter)
	d.lookPath = fakeLookPath("ltl2tgba")

	level, missing, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CapPlanOnly, level)
	assert.Equal(t, []string{"spin"}, missing)
}

func TestDetector_BothMissing_ListsBoth(t *testing.T) {
	d := NewDefaultDetector(nil, "spin", "ltl2tgba", "")
	d.lookPath = fakeLookPath()

	level, missing, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CapPlanOnly, level)
	assert.Equal(t, []string{"spin", "ltl2tgba"}, missing)
}

func TestDetector_ConsoleArbiter_Full(t *testing.T) {
	d := NewDefaultDetector(nil, "spin", "ltl2tgba", ConsoleArbiter)
	d.lookPath = fakeLookPath("spin", "ltl2tgba")

	level, missing, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CapFull, level)
	assert.Empty(t, missing)
}

func TestDetector_NoArbiter_Verify(t *testing.T) {
	d := NewDefaultDetector(nil, "spin", "ltl2tgba", "")
	d.lookPath = fakeLookPath("spin", "ltl2tgba")

	level, missing, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CapVerify, level)
	assert.Equal(t, []string{"arbiter"}, missing)
}

func TestDetector_RemoteArbiterDiscovered(t *testing.T) {
	ts := httptest.NewServer(mockAgentCardHandler())
	defer ts.Close()

	d := NewDefaultDetector(a2a.NewHTTPClient(), "spin", "ltl2tgba", ts.URL)
	d.lookPath = fakeLookPath("spin", "ltl2tgba")

	level, _, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CapFull, level)
}

func TestDetector_RemoteArbiterTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer ts.Close()

	d := NewDefaultDetector(a2a.NewHTTPClient(), "spin", "ltl2tgba", ts.URL)
	d.lookPath = fakeLookPath("spin", "ltl2tgba")
	d.dialTimeout = 200 * time.Millisecond

	start := time.Now()
	level, missing, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CapVerify, level)
	assert.Equal(t, []string{"arbiter"}, missing)
	assert.Less(t, time.Since(start), 3*time.Second)
}
