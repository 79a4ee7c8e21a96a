package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeParallelTransitionsSumsWeights(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	b.StateBuilder(0).AddTransitionTo(Point('a'), FromValue(2), s1)
	b.StateBuilder(0).AddTransitionTo(Point('a'), FromValue(3), s1)

	MergeParallelTransitions(b)

	it := b.TransitionIterator(0)
	var merged []Transition
	for it.Next() {
		merged = append(merged, it.Transition())
	}
	if assert.Len(t, merged, 1) {
		assert.InDelta(t, 5.0, merged[0].Weight.Value(), 1e-9)
		assert.Equal(t, int32(1), merged[0].DestinationState)
	}
}

func TestMergeParallelTransitionsKeepsEpsilonSeparateFromLabeled(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	b.StateBuilder(0).AddEpsilonTransition(FromValue(2), s1)
	b.StateBuilder(0).AddTransitionTo(Point('a'), FromValue(3), s1)

	MergeParallelTransitions(b)

	it := b.TransitionIterator(0)
	count := 0
	for it.Next() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestMergeParallelTransitionsLeavesDifferentGroupsSeparate(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	t1 := b.StateBuilder(0).AddTransitionTo(Point('a'), One, s1)
	b.transitions[t1].Transition.Group = 1
	b.StateBuilder(0).AddTransitionTo(Point('a'), One, s1)

	MergeParallelTransitions(b)

	it := b.TransitionIterator(0)
	count := 0
	for it.Next() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestMergeParallelTransitionsUnionsRanges(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	b.StateBuilder(0).AddTransitionTo(InRange('a', 'm'), One, s1)
	b.StateBuilder(0).AddTransitionTo(InRange('m', 'z'), One, s1)

	MergeParallelTransitions(b)

	it := b.TransitionIterator(0)
	assert.True(t, it.Next())
	merged := it.Transition()
	assert.False(t, it.Next())

	dc, ok := merged.ElementDistribution.(DiscreteChar)
	assert.True(t, ok)
	// merged weight is 1+1 = 2; each member's ranges are scaled by its
	// weight share 1/2, so weight times probability stays 1 per character.
	assert.InDelta(t, 0.5, dc.Probability('a').Value(), 1e-9)
	assert.InDelta(t, 0.5, dc.Probability('n').Value(), 1e-9)
	assert.True(t, dc.Probability('z').IsZero())
}

func TestPruneStatesWithLogEndWeightLessThan(t *testing.T) {
	b := NewZeroBuilder()
	live, _ := b.AddState()
	dead, _ := b.AddState()
	b.StateBuilder(0).AddTransitionTo(Point('a'), One, live)
	b.StateBuilder(0).AddTransitionTo(Point('b'), One, dead)
	b.StateBuilder(live).SetEndWeight(One)
	b.StateBuilder(dead).SetEndWeight(FromValue(1e-20))

	removed := PruneStatesWithLogEndWeightLessThan(b, -10)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, b.NumStates())
}

func TestPruneStatesKeepsAncestorsOfSurvivors(t *testing.T) {
	b := NewZeroBuilder()
	mid, _ := b.AddState()
	end, _ := b.AddState()
	b.StateBuilder(0).AddTransitionTo(Point('a'), One, mid)
	b.StateBuilder(mid).AddTransitionTo(Point('b'), One, end)
	b.StateBuilder(end).SetEndWeight(One)

	removed := PruneStatesWithLogEndWeightLessThan(b, -10)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 3, b.NumStates())
}
