package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase_StringRoundTrip(t *testing.T) {
	for p := NeedPlan; p <= Failed; p++ {
		parsed, err := ParsePhase(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
	assert.Equal(t, "unknown", Phase(42).String())
	_, err := ParsePhase("nope")
	require.Error(t, err)
}

func TestPhase_JSON(t *testing.T) {
	data, err := json.Marshal(Attempt{Phase: NeedTrailCheck, RetryTo: NeedPlan})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"need-trail-check"`)

	var a Attempt
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, NeedPlan, a.RetryTo)
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, checkTransition(NeedPlan, NeedLogic, false))
	assert.NoError(t, checkTransition(NeedPlan, Done, false))
	assert.NoError(t, checkTransition(NeedTrailCheck, Done, false))
	assert.NoError(t, checkTransition(NeedVerification, Failed, false))
	assert.NoError(t, checkTransition(NeedTrailCheck, NeedPlan, true))
	assert.NoError(t, checkTransition(NeedConsistency, NeedLogic, true))

	assert.Error(t, checkTransition(NeedPlan, NeedVerification, false))
	assert.Error(t, checkTransition(NeedLogic, NeedPlan, false))
	assert.Error(t, checkTransition(NeedLogic, NeedVerification, true))
	assert.Error(t, checkTransition(Done, NeedPlan, true))
}

func TestCapabilityLevel_Text(t *testing.T) {
	for _, c := range []CapabilityLevel{CapPlanOnly, CapVerify, CapFull} {
		text, err := c.MarshalText()
		require.NoError(t, err)
		var back CapabilityLevel
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, c, back)
	}
	var c CapabilityLevel
	assert.Error(t, c.UnmarshalText([]byte("turbo")))
}
