package automaton

import "github.com/bits-and-blooms/bitset"

// DeterminizationState records what, if anything, is known about
// whether an ImmutableAutomaton is deterministic.
type DeterminizationState int

const (
	DeterminizationUnknown DeterminizationState = iota
	DeterminizationIsDeterminized
	DeterminizationIsNonDeterminizable
)

// ImmutableAutomaton is a finalized, read-only WFSA: parallel arrays of
// StateData and Transition, a start state index, and an epsilon-freeness
// flag. For each state s, the half-open range
// [states[s].FirstTransition, states[s].LastTransition) indexes
// contiguous transitions in the flat transitions array; this is the only
// layout exposed to readers.
type ImmutableAutomaton struct {
	states           []StateData
	transitions      []Transition
	startStateIndex  int32
	isEpsilonFree    bool
	determinization  DeterminizationState
	pruneThreshold   *float64
	logValueOverride *float64
}

// newImmutableAutomaton assembles an ImmutableAutomaton from its parts.
// It is used by Builder.Finalize and by the determinizer; callers
// outside this package should go through Builder.
func newImmutableAutomaton(states []StateData, transitions []Transition, start int32, epsilonFree bool) *ImmutableAutomaton {
	return &ImmutableAutomaton{
		states:          states,
		transitions:     transitions,
		startStateIndex: start,
		isEpsilonFree:   epsilonFree,
		determinization: DeterminizationUnknown,
	}
}

// NumStates returns the number of states.
func (a *ImmutableAutomaton) NumStates() int {
	return len(a.states)
}

// State returns the StateData for a given index.
func (a *ImmutableAutomaton) State(index int32) StateData {
	return a.states[index]
}

// States returns the read-only backing array of states.
func (a *ImmutableAutomaton) States() []StateData {
	return a.states
}

// Transitions returns the read-only backing array of transitions.
func (a *ImmutableAutomaton) Transitions() []Transition {
	return a.transitions
}

// TransitionsFor returns the live transition slice belonging to state.
func (a *ImmutableAutomaton) TransitionsFor(state int32) []Transition {
	s := a.states[state]
	if s.FirstTransition < 0 {
		return nil
	}
	return a.transitions[s.FirstTransition:s.LastTransition]
}

// StartStateIndex returns the index of the start state.
func (a *ImmutableAutomaton) StartStateIndex() int32 {
	return a.startStateIndex
}

// IsEpsilonFree reports whether no transition has a nil element
// distribution.
func (a *ImmutableAutomaton) IsEpsilonFree() bool {
	return a.isEpsilonFree
}

// DeterminizationStateOf reports what is known about determinism.
func (a *ImmutableAutomaton) DeterminizationStateOf() DeterminizationState {
	return a.determinization
}

// PruneThreshold returns the log-end-weight prune threshold recorded on
// this automaton, if any. No operation in this package records one:
// PruneStatesWithLogEndWeightLessThan works on a Builder and does not
// stamp its threshold here.
func (a *ImmutableAutomaton) PruneThreshold() (float64, bool) {
	if a.pruneThreshold == nil {
		return 0, false
	}
	return *a.pruneThreshold, true
}

// LogValueOverride returns the override log value stamped on this
// automaton by a caller, if any. Reserved for callers that need to
// record a substitute interpretation of end weights without mutating
// every StateData; no operation in this package sets it implicitly.
func (a *ImmutableAutomaton) LogValueOverride() (float64, bool) {
	if a.logValueOverride == nil {
		return 0, false
	}
	return *a.logValueOverride, true
}

// SetLogValueOverride stamps an override log value on this automaton.
func (a *ImmutableAutomaton) SetLogValueOverride(v float64) {
	a.logValueOverride = &v
}

// CheckConsistency verifies the structural invariants of a finalized
// automaton: the start index is in range, every state's transition
// range lies inside the transition array, every transition's
// destination is a valid state index, and every state is reachable
// from the start state. Violating these on an already-finalized
// automaton is a programming error.
func (a *ImmutableAutomaton) CheckConsistency() error {
	n := len(a.states)
	if a.startStateIndex < 0 || int(a.startStateIndex) >= n {
		return ErrIndicesOutOfRange
	}

	numTransitions := int32(len(a.transitions))
	for _, s := range a.states {
		if s.FirstTransition == -1 && s.LastTransition == -1 {
			continue
		}
		if s.FirstTransition < 0 || s.LastTransition < s.FirstTransition || s.LastTransition > numTransitions {
			return ErrIndicesOutOfRange
		}
		for _, t := range a.transitions[s.FirstTransition:s.LastTransition] {
			if t.DestinationState < 0 || int(t.DestinationState) >= n {
				return ErrIndicesOutOfRange
			}
		}
	}

	visited := bitset.New(uint(n))
	visited.Set(uint(a.startStateIndex))
	queue := []int32{a.startStateIndex}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range a.TransitionsFor(s) {
			if !visited.Test(uint(t.DestinationState)) {
				visited.Set(uint(t.DestinationState))
				queue = append(queue, t.DestinationState)
			}
		}
	}
	if visited.Count() != uint(n) {
		return ErrIndicesOutOfRange
	}
	return nil
}

// Swap atomically exchanges this automaton's backing state/transition
// arrays and metadata with other's. Used by the determinizer to install
// a freshly-built result without aliasing intermediate storage.
func (a *ImmutableAutomaton) Swap(other *ImmutableAutomaton) {
	a.states, other.states = other.states, a.states
	a.transitions, other.transitions = other.transitions, a.transitions
	a.startStateIndex, other.startStateIndex = other.startStateIndex, a.startStateIndex
	a.isEpsilonFree, other.isEpsilonFree = other.isEpsilonFree, a.isEpsilonFree
	a.determinization, other.determinization = other.determinization, a.determinization
	a.pruneThreshold, other.pruneThreshold = other.pruneThreshold, a.pruneThreshold
	a.logValueOverride, other.logValueOverride = other.logValueOverride, a.logValueOverride
}

// Reassign installs other's backing arrays and metadata into a in
// place, replacing a's prior content entirely (as opposed to Swap,
// which exchanges with a live sibling).
func (a *ImmutableAutomaton) Reassign(other *ImmutableAutomaton) {
	a.states = other.states
	a.transitions = other.transitions
	a.startStateIndex = other.startStateIndex
	a.isEpsilonFree = other.isEpsilonFree
	a.determinization = other.determinization
	a.pruneThreshold = other.pruneThreshold
	a.logValueOverride = other.logValueOverride
}
