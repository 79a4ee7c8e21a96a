package automaton

// Transition is one edge of a WFSA: it carries an optional element
// distribution (nil means an epsilon transition), a weight, the index
// of the destination state, and a group tag (0 meaning ungrouped).
//
// destination_state is a weak back-reference to any state of the same
// automaton; cycles through it are permitted and carry no ownership
// hazard since storage is index-addressed, not pointer-addressed.
type Transition struct {
	ElementDistribution ElementDistribution // nil => epsilon
	Weight              Weight
	DestinationState    int32
	Group               int32
}

// IsEpsilon reports whether this transition consumes no input element.
func (t Transition) IsEpsilon() bool {
	return t.ElementDistribution == nil
}

// StateData is the finalized, read-only record of one automaton state:
// the half-open range of its outgoing transitions in the flat
// transition array, and its end (acceptance) weight.
//
// FirstTransition == -1 iff LastTransition == -1 iff the state has no
// outgoing transitions.
type StateData struct {
	FirstTransition int32
	LastTransition  int32
	EndWeight       Weight
}

// CanEnd reports whether this state may terminate a sequence, i.e. its
// end weight is non-zero.
func (s StateData) CanEnd() bool {
	return !s.EndWeight.IsZero()
}

// NumTransitions returns how many outgoing transitions this state has.
func (s StateData) NumTransitions() int32 {
	if s.FirstTransition < 0 {
		return 0
	}
	return s.LastTransition - s.FirstTransition
}
