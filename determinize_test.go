package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryDeterminizeAlreadyDeterministic(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	s2, _ := b.AddState()
	s3, _ := b.AddState()
	b.StateBuilder(0).AddTransitionTo(Point('a'), One, s1)
	b.StateBuilder(0).AddTransitionTo(Point('b'), One, s2)
	b.StateBuilder(0).AddTransitionTo(Point('c'), One, s3)
	b.StateBuilder(s1).SetEndWeight(One)
	b.StateBuilder(s2).SetEndWeight(One)
	b.StateBuilder(s3).SetEndWeight(One)

	a, err := b.Finalize()
	assert.NoError(t, err)

	d := NewDeterminizer()
	out, ok := d.TryDeterminize(a)
	assert.True(t, ok)
	assert.LessOrEqual(t, out.NumStates(), 3*a.NumStates())
	assert.Equal(t, DeterminizationIsDeterminized, out.DeterminizationStateOf())
	assert.NoError(t, out.CheckConsistency())

	w, ok := acceptWeight(out, []int{'a'})
	assert.True(t, ok)
	assert.True(t, w.Equal(One))
}

func TestTryDeterminizeOverlappingRanges(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	s2, _ := b.AddState()
	w1 := FromValue(2)
	w2 := FromValue(3)
	b.StateBuilder(0).AddTransitionTo(InRange('a', 'z'+1), w1, s1)
	b.StateBuilder(0).AddTransitionTo(InRange('m', 'z'+1), w2, s2)
	b.StateBuilder(s1).SetEndWeight(One)
	b.StateBuilder(s2).SetEndWeight(One)

	a, err := b.Finalize()
	assert.NoError(t, err)

	d := NewDeterminizer()
	out, ok := d.TryDeterminize(a)
	assert.True(t, ok)
	assert.NoError(t, out.CheckConsistency())

	ts := out.TransitionsFor(out.StartStateIndex())
	assert.Len(t, ts, 2)

	var sawLow, sawHigh bool
	for _, tr := range ts {
		dc, ok := tr.ElementDistribution.(DiscreteChar)
		assert.True(t, ok)
		ranges := dc.Ranges()
		if assert.Len(t, ranges, 1) {
			if ranges[0].StartInclusive == 'a' {
				sawLow = true
				assert.Equal(t, int('m'), ranges[0].EndExclusive)
				assert.InDelta(t, float64('m'-'a')*2.0, tr.Weight.Value(), 1e-6)
			} else if ranges[0].StartInclusive == 'm' {
				sawHigh = true
				assert.Equal(t, int('z')+1, ranges[0].EndExclusive)
				// weight = width * max(w1, w2): the normalizer folds the
				// additive w1+w2 total down to the dominant destination's
				// share (spec's "modulo normalizer folding").
				assert.InDelta(t, float64('z'+1-'m')*3.0, tr.Weight.Value(), 1e-6)
			}
		}
	}
	assert.True(t, sawLow)
	assert.True(t, sawHigh)
}

func TestTryDeterminizeRefusesGroupedAutomaton(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	b.StateBuilder(0).AddTransition(Transition{ElementDistribution: Point('a'), Weight: One, DestinationState: s1, Group: 7})

	a, err := b.Finalize()
	assert.NoError(t, err)

	d := NewDeterminizer()
	out, ok := d.TryDeterminize(a)
	assert.False(t, ok)
	assert.Same(t, a, out)
	assert.Equal(t, DeterminizationIsNonDeterminizable, a.DeterminizationStateOf())
}

func TestTryDeterminizeAbortsOnStateBudget(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	b.StateBuilder(0).AddTransitionTo(Point('a'), One, s1)
	b.StateBuilder(s1).SetEndWeight(One)

	a, err := b.Finalize()
	assert.NoError(t, err)

	d := NewDeterminizer()
	d.MaxStates = 1
	out, ok := d.TryDeterminize(a)
	assert.False(t, ok)
	assert.Same(t, a, out)
}
