package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestScenarioRemoveStatesLiteral exercises spec.md's literal remove_states
// scenario: 4 states, labels [keep, remove, keep, remove].
func TestScenarioRemoveStatesLiteral(t *testing.T) {
	b := NewZeroBuilder()
	b.AddStates(3)
	b.SetStartState(0)

	removed := b.RemoveStates([]bool{false, true, false, true}, true)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, b.NumStates())
	assert.Equal(t, int32(0), b.StartState())
}

// TestScenarioDeterminizeAlreadyDeterministicLiteral exercises spec.md's
// scenario 5: three states, each with one outgoing transition on a point
// distribution over a distinct character, must determinize to at most
// three states.
func TestScenarioDeterminizeAlreadyDeterministicLiteral(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	s2, _ := b.AddState()
	b.StateBuilder(0).AddTransitionTo(Point('x'), One, s1)
	b.StateBuilder(s1).AddTransitionTo(Point('y'), One, s2)
	b.StateBuilder(s2).AddTransitionTo(Point('z'), One, s2)
	b.StateBuilder(s2).SetEndWeight(One)

	a, err := b.Finalize()
	assert.NoError(t, err)

	out, ok := NewDeterminizer().TryDeterminize(a)
	assert.True(t, ok)
	assert.LessOrEqual(t, out.NumStates(), 3)
}
