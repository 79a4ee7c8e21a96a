package automaton

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadAutomatonRoundTrip(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	b.StateBuilder(0).AddTransitionTo(InRange('a', 'd'), FromValue(2), s1)
	b.StateBuilder(s1).SetEndWeight(FromValue(3))

	orig, err := b.Finalize()
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, WriteAutomaton(&buf, orig))

	got, err := ReadAutomaton(&buf)
	assert.NoError(t, err)
	assert.NoError(t, got.CheckConsistency())

	assert.Equal(t, orig.NumStates(), got.NumStates())
	assert.Equal(t, orig.StartStateIndex(), got.StartStateIndex())
	assert.Equal(t, orig.IsEpsilonFree(), got.IsEpsilonFree())

	origTs := orig.TransitionsFor(0)
	gotTs := got.TransitionsFor(0)
	if assert.Len(t, gotTs, len(origTs)) {
		assert.Equal(t, origTs[0].DestinationState, gotTs[0].DestinationState)
		assert.True(t, origTs[0].Weight.Equal(gotTs[0].Weight))

		origDC := origTs[0].ElementDistribution.(DiscreteChar)
		gotDC := gotTs[0].ElementDistribution.(DiscreteChar)
		assert.Equal(t, origDC.Ranges(), gotDC.Ranges())
	}

	assert.True(t, got.State(s1).EndWeight.Equal(orig.State(s1).EndWeight))
}

func TestWriteReadEpsilonTransition(t *testing.T) {
	b := NewZeroBuilder()
	s1, _ := b.AddState()
	b.StateBuilder(0).AddEpsilonTransition(One, s1)
	b.StateBuilder(s1).SetEndWeight(One)

	orig, err := b.Finalize()
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, WriteAutomaton(&buf, orig))

	got, err := ReadAutomaton(&buf)
	assert.NoError(t, err)
	assert.False(t, got.IsEpsilonFree())
	assert.True(t, got.TransitionsFor(0)[0].IsEpsilon())
}

func TestReadAutomatonRejectsVersionMismatch(t *testing.T) {
	b := NewZeroBuilder()
	a, err := b.Finalize()
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, WriteAutomaton(&buf, a))

	corrupted := buf.Bytes()
	corrupted[0] ^= 0xFF

	_, err = ReadAutomaton(bytes.NewReader(corrupted))
	assert.ErrorIs(t, err, ErrWireVersionMismatch)
}
