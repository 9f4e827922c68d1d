package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func act(name string) *Action { return &Action{Name: name, ActionType: "MoveToGPSLocation"} }

func TestCountTasks_ActionsOnly(t *testing.T) {
	p := &Plan{Root: &Sequence{Children: []Node{act("a"), act("b"), act("c")}}}
	assert.Equal(t, 3, CountTasks(p))
}

func TestCountTasks_FallbackPair_AddsTwo(t *testing.T) {
	cond := func(c Comparator) Node { return &CheckValue{ValueVar: "temp", Threshold: 30, Comparator: c} }
	without := &Plan{Root: &Sequence{Children: []Node{act("a")}}}
	with := &Plan{Root: &Sequence{Children: []Node{
		act("a"),
		&Fallback{Children: []Node{
			&Sequence{Children: []Node{cond(LT)}},
			&Sequence{Children: []Node{cond(GTE)}},
		}},
	}}}

	assert.Equal(t, CountTasks(without)+2, CountTasks(with))
}

func TestCountTasks_LoneAlternative_AddsTwo(t *testing.T) {
	p := &Plan{Root: &Sequence{Children: []Node{
		&Fallback{Children: []Node{
			&Sequence{Children: []Node{&AssertTrue{ResultVar: "found"}, act("pic")}},
		}},
	}}}
	assert.Equal(t, 3, CountTasks(p), "one action plus the assumed alternative edge pair")
}

func TestCountTasks_ThreeAlternatives_RoundsUp(t *testing.T) {
	alt := func(n string) Node { return &Sequence{Children: []Node{act(n)}} }
	p := &Plan{Root: &Fallback{Children: []Node{alt("a"), alt("b"), alt("c")}}}
	assert.Equal(t, 3+4, CountTasks(p))
}

func TestCountTasks_Mission(t *testing.T) {
	p, err := ParseXML([]byte(sampleMission))
	require.NoError(t, err)
	// four actions + one Fallback pair
	assert.Equal(t, 6, CountTasks(p))
}

func TestCountTasks_Nil(t *testing.T) {
	assert.Equal(t, 0, CountTasks(nil))
}

func TestActions_DocumentOrder(t *testing.T) {
	p, err := ParseXML([]byte(sampleMission))
	require.NoError(t, err)

	var names []string
	for _, a := range Actions(p) {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"goToTree1", "readTemp1", "co2Tree1", "thermalTree1"}, names)
}

func TestComparator_Holds(t *testing.T) {
	assert.True(t, LT.Holds(29, 30))
	assert.False(t, LT.Holds(30, 30))
	assert.True(t, GTE.Holds(30, 30))
	assert.True(t, NEQ.Holds(31, 30))
	assert.False(t, EQ.Holds(31, 30))
}
