package automaton

// MaxStates bounds how large a Builder (and, transitively, a
// determinized automaton) may grow. It is one of the two process-wide
// constants the core defines (the other is DefaultLogEps in
// determinize.go).
const MaxStates = 1 << 24

// LinkedTransition is the Builder-only storage cell for one transition:
// the transition payload, the index of the next cell in its source
// state's singly-linked chain (-1 if it is the tail), and a tombstone
// bit. Removal is logical so that transition indices handed out by
// AddTransition remain stable until Finalize.
type LinkedTransition struct {
	Transition Transition
	Next       int32
	Removed    bool
}

// Builder is the mutable construction surface for a WFSA. It owns an
// append-only state vector and a pooled, singly-linked transition list
// per state with logical removal (tombstones), so that per-state
// AddTransition/RemoveState/iterator edits never invalidate transition
// indices stored elsewhere until Finalize compacts everything into a
// fresh ImmutableAutomaton.
type Builder struct {
	states          []StateData
	transitions     []LinkedTransition
	removedCount    int
	startStateIndex int32
}

// NewZeroBuilder returns a Builder with exactly one state, index 0, no
// transitions, end weight Zero, and start 0.
func NewZeroBuilder() *Builder {
	return &Builder{
		states:          []StateData{{FirstTransition: -1, LastTransition: -1, EndWeight: Zero}},
		startStateIndex: 0,
	}
}

// NewBuilderFromAutomaton copies a's states and transitions into fresh
// builder storage, preserving indices, and sets start = a.start.
func NewBuilderFromAutomaton(a *ImmutableAutomaton) *Builder {
	b := &Builder{
		states:          make([]StateData, len(a.states)),
		transitions:     make([]LinkedTransition, len(a.transitions)),
		startStateIndex: a.startStateIndex,
	}
	copy(b.states, a.states)
	for i := range b.states {
		s := &b.states[i]
		if s.FirstTransition == -1 {
			continue
		}
		for j := s.FirstTransition; j < s.LastTransition; j++ {
			next := j + 1
			if j == s.LastTransition-1 {
				next = -1
			}
			b.transitions[j] = LinkedTransition{Transition: a.transitions[j], Next: next}
		}
	}
	return b
}

// ConstantOn builds a Builder that accepts exactly the given sequence of
// elements with accumulated weight w, and no other sequence.
func ConstantOn(w Weight, sequence []ElementDistribution) *Builder {
	b := NewZeroBuilder()
	if len(sequence) == 0 {
		b.StateBuilder(0).SetEndWeight(w)
		return b
	}
	state := int32(0)
	for i, elem := range sequence {
		stepWeight := One
		last := i == len(sequence)-1
		if last {
			stepWeight = w
		}
		next, err := b.AddState()
		if err != nil {
			panic(err) // sequence length is caller-controlled and bounded by MaxStates
		}
		b.StateBuilder(state).AddTransitionTo(elem, stepWeight, next)
		state = next
	}
	b.StateBuilder(state).SetEndWeight(One)
	return b
}

// AddState appends a new state with end weight Zero and returns its
// index. Fails with ErrTooLarge if the state count would exceed
// MaxStates.
func (b *Builder) AddState() (int32, error) {
	if len(b.states) >= MaxStates {
		return -1, ErrTooLarge
	}
	b.states = append(b.states, StateData{FirstTransition: -1, LastTransition: -1, EndWeight: Zero})
	return int32(len(b.states) - 1), nil
}

// AddStates appends n new states and returns the index of the first one.
func (b *Builder) AddStates(n int) (int32, error) {
	if len(b.states)+n > MaxStates {
		return -1, ErrTooLarge
	}
	first := int32(len(b.states))
	target := len(b.states) + n
	b.states = grow(b.states, target)
	for i := int(first); i < target; i++ {
		b.states[i] = StateData{FirstTransition: -1, LastTransition: -1, EndWeight: Zero}
	}
	return first, nil
}

// AddStatesFrom copies every state (and, rebased, every transition) of
// other into b and returns the offset at which other's states now live.
func (b *Builder) AddStatesFrom(other *Builder) (int32, error) {
	offset := int32(len(b.states))
	if len(b.states)+len(other.states) > MaxStates {
		return -1, ErrTooLarge
	}
	for i := range other.states {
		b.states = append(b.states, StateData{FirstTransition: -1, LastTransition: -1, EndWeight: other.states[i].EndWeight})
	}
	for i := range other.states {
		it := other.TransitionIterator(int32(i))
		for it.Next() {
			t := it.Transition()
			t.DestinationState += offset
			b.StateBuilder(offset + int32(i)).AddTransition(t)
		}
	}
	return offset, nil
}

// NumStates returns the current number of states.
func (b *Builder) NumStates() int {
	return len(b.states)
}

// TransitionCount returns the number of live (non-tombstoned)
// transitions.
func (b *Builder) TransitionCount() int {
	return len(b.transitions) - b.removedCount
}

// StartState returns the current start state index.
func (b *Builder) StartState() int32 {
	return b.startStateIndex
}

// SetStartState sets the start state index. The caller must ensure it
// remains a valid index; Builder does not validate it until Finalize.
func (b *Builder) SetStartState(index int32) {
	b.startStateIndex = index
}

// EndWeight returns the end weight of a state.
func (b *Builder) EndWeight(state int32) Weight {
	return b.states[state].EndWeight
}

// resetToZero discards all states and transitions, leaving the Builder
// in the same state NewZeroBuilder would produce.
func (b *Builder) resetToZero() {
	b.states = []StateData{{FirstTransition: -1, LastTransition: -1, EndWeight: Zero}}
	b.transitions = nil
	b.removedCount = 0
	b.startStateIndex = 0
}

// RemoveState removes state index from the builder: it tombstones all
// outgoing transitions of the removed state, removes it physically from
// the state vector, and for every surviving transition, tombstones
// those pointing at the removed state and decrements destination
// indices strictly greater than index. The start index is not adjusted
// automatically; the caller must ensure it remains valid.
func (b *Builder) RemoveState(index int32) {
	it := b.TransitionIterator(index)
	for it.Next() {
		it.Remove()
	}

	b.states = append(b.states[:index], b.states[index+1:]...)

	for i := range b.transitions {
		lt := &b.transitions[i]
		if lt.Removed {
			continue
		}
		switch {
		case lt.Transition.DestinationState == index:
			lt.Removed = true
			b.removedCount++
		case lt.Transition.DestinationState > index:
			lt.Transition.DestinationState--
		}
	}
}

// RemoveStates bulk-removes every state i for which labels[i] ==
// removeLabel, compacting the remaining states in place, tombstoning
// transitions whose destination was removed, and renumbering the
// survivors' destinations. If the start state is removed, the builder
// is reset to Zero. Returns the number of removed states.
func (b *Builder) RemoveStates(labels []bool, removeLabel bool) int {
	n := len(b.states)
	mapped := make([]int32, n)
	newStates := make([]StateData, 0, n)
	var next int32
	for i := 0; i < n; i++ {
		if labels[i] == removeLabel {
			mapped[i] = -1
			continue
		}
		mapped[i] = next
		next++
		newStates = append(newStates, b.states[i])
	}
	removed := n - int(next)
	if removed == 0 {
		return 0
	}

	for i := 0; i < n; i++ {
		if mapped[i] != -1 {
			continue
		}
		it := b.TransitionIterator(int32(i))
		for it.Next() {
			it.Remove()
		}
	}

	for i := range b.transitions {
		lt := &b.transitions[i]
		if lt.Removed {
			continue
		}
		newDest := mapped[lt.Transition.DestinationState]
		if newDest == -1 {
			lt.Removed = true
			b.removedCount++
		} else {
			lt.Transition.DestinationState = newDest
		}
	}

	b.states = newStates

	if int(b.startStateIndex) >= n || mapped[b.startStateIndex] == -1 {
		b.resetToZero()
		return removed
	}
	b.startStateIndex = mapped[b.startStateIndex]
	return removed
}

// Append concatenates other onto b: every state of other is added with
// rebased destinations (and, if group != 0, every copied transition is
// relabeled to that group). If avoidEpsilon holds and either every
// pre-existing end state of b has no outgoing transitions, or other's
// start state has no incoming transitions within other, the start state
// of other is fused directly into each former end state instead of
// being bridged by an epsilon transition.
func (b *Builder) Append(other *Builder, group int32, avoidEpsilon bool) error {
	var formerEnds []int32
	for i := range b.states {
		if b.states[i].CanEnd() {
			formerEnds = append(formerEnds, int32(i))
		}
	}

	otherStartHasIncoming := false
	for i := range other.transitions {
		lt := other.transitions[i]
		if !lt.Removed && lt.Transition.DestinationState == other.startStateIndex {
			otherStartHasIncoming = true
			break
		}
	}

	offset, err := b.AddStatesFrom(other)
	if err != nil {
		return err
	}
	if group != 0 {
		for i := range other.states {
			it := b.TransitionIterator(offset + int32(i))
			for it.Next() {
				t := it.Transition()
				t.Group = group
				it.SetTransition(t)
			}
		}
	}
	s := offset + other.startStateIndex

	allEndsHaveNoOutgoing := true
	for _, e := range formerEnds {
		if b.states[e].FirstTransition != -1 {
			allEndsHaveNoOutgoing = false
			break
		}
	}

	if avoidEpsilon && (allEndsHaveNoOutgoing || !otherStartHasIncoming) {
		sWeight := b.states[s].EndWeight
		sTransitions := b.TransitionsSnapshot(s)
		for _, e := range formerEnds {
			eWeight := b.states[e].EndWeight
			for _, t := range sTransitions {
				w := t.Weight
				dest := t.DestinationState
				if dest != s {
					w = Product(t.Weight, eWeight)
				} else {
					dest = e
				}
				b.StateBuilder(e).AddTransition(Transition{
					ElementDistribution: t.ElementDistribution,
					Weight:              w,
					DestinationState:    dest,
					Group:               t.Group,
				})
			}
			b.states[e].EndWeight = Product(eWeight, sWeight)
		}
		b.RemoveState(s)
		return nil
	}

	for _, e := range formerEnds {
		w := b.states[e].EndWeight
		b.StateBuilder(e).AddEpsilonTransition(w, s)
		b.states[e].EndWeight = Zero
	}
	return nil
}

// TransitionsSnapshot returns a snapshot slice of state's current live
// transitions, safe to keep across further mutation of the Builder.
func (b *Builder) TransitionsSnapshot(state int32) []Transition {
	var out []Transition
	it := b.TransitionIterator(state)
	for it.Next() {
		out = append(out, it.Transition())
	}
	return out
}

// Finalize allocates the flat state and transition arrays of a fresh
// ImmutableAutomaton. For each state in order, it walks its linked list
// skipping tombstones, appends live transitions to the output array, and
// records the half-open [first, last) range on the output state. The
// result is epsilon-free iff no live transition has a nil element
// distribution.
func (b *Builder) Finalize() (*ImmutableAutomaton, error) {
	if b.startStateIndex < 0 || int(b.startStateIndex) >= len(b.states) {
		return nil, ErrInvalidStart
	}

	outStates := make([]StateData, len(b.states))
	outTransitions := make([]Transition, 0, b.TransitionCount())
	epsilonFree := true

	for i := range b.states {
		first := int32(-1)
		it := b.TransitionIterator(int32(i))
		for it.Next() {
			t := it.Transition()
			if first == -1 {
				first = int32(len(outTransitions))
			}
			if t.IsEpsilon() {
				epsilonFree = false
			}
			outTransitions = append(outTransitions, t)
		}
		last := int32(len(outTransitions))
		if first == -1 {
			last = -1
		}
		outStates[i] = StateData{FirstTransition: first, LastTransition: last, EndWeight: b.states[i].EndWeight}
	}

	return newImmutableAutomaton(outStates, outTransitions, b.startStateIndex, epsilonFree), nil
}

// StateBuilder returns a value handle for editing the transitions and
// end weight of the given state.
func (b *Builder) StateBuilder(index int32) StateBuilder {
	return StateBuilder{b: b, index: index}
}

// StateBuilder is a lightweight handle { builder, index } exposing
// per-state mutation.
type StateBuilder struct {
	b     *Builder
	index int32
}

// Index returns the state index this handle edits.
func (sb StateBuilder) Index() int32 {
	return sb.index
}

// SetEndWeight sets the end (acceptance) weight of this state.
func (sb StateBuilder) SetEndWeight(w Weight) {
	sb.b.states[sb.index].EndWeight = w
}

// AddTransition appends an already-populated Transition to this state's
// chain and returns its storage index. Adding a transition never
// changes the index of a previously added one.
func (sb StateBuilder) AddTransition(t Transition) int32 {
	b := sb.b
	newIndex := int32(len(b.transitions))
	b.transitions = append(b.transitions, LinkedTransition{Transition: t, Next: -1})

	s := &b.states[sb.index]
	if s.FirstTransition == -1 {
		s.FirstTransition = newIndex
	} else {
		b.transitions[s.LastTransition].Next = newIndex
	}
	s.LastTransition = newIndex
	return newIndex
}

// AddTransitionTo adds a transition on dist with weight w to an
// explicit destination state.
func (sb StateBuilder) AddTransitionTo(dist ElementDistribution, w Weight, dest int32) int32 {
	return sb.AddTransition(Transition{ElementDistribution: dist, Weight: w, DestinationState: dest})
}

// AddTransitionNewState adds a transition on dist with weight w to a
// freshly allocated state, returning both the transition index and the
// new state's index.
func (sb StateBuilder) AddTransitionNewState(dist ElementDistribution, w Weight) (int32, int32, error) {
	dest, err := sb.b.AddState()
	if err != nil {
		return -1, -1, err
	}
	return sb.AddTransitionTo(dist, w, dest), dest, nil
}

// AddEpsilonTransition adds an epsilon (nil distribution) transition of
// weight w to dest.
func (sb StateBuilder) AddEpsilonTransition(w Weight, dest int32) int32 {
	return sb.AddTransitionTo(nil, w, dest)
}

// AddSelfTransition adds a transition on dist with weight w whose
// destination is this same state.
func (sb StateBuilder) AddSelfTransition(dist ElementDistribution, w Weight) int32 {
	return sb.AddTransitionTo(dist, w, sb.index)
}

// AddTransitionsForSequence strings single-element transitions of
// weight One for each element of seq, branching a fresh state per
// element except for the final one, which lands on finalDest if
// non-negative (a negative finalDest allocates a fresh final state).
func (sb StateBuilder) AddTransitionsForSequence(seq []ElementDistribution, finalDest int32) (int32, error) {
	state := sb.index
	for i, elem := range seq {
		if i == len(seq)-1 {
			dest := finalDest
			if dest < 0 {
				var err error
				dest, err = sb.b.AddState()
				if err != nil {
					return -1, err
				}
			}
			sb.b.StateBuilder(state).AddTransitionTo(elem, One, dest)
			return dest, nil
		}
		next, err := sb.b.AddState()
		if err != nil {
			return -1, err
		}
		sb.b.StateBuilder(state).AddTransitionTo(elem, One, next)
		state = next
	}
	return state, nil
}

// TransitionIterator returns a fresh iterator over state's live
// transitions, walking the per-state chain and skipping tombstones.
func (b *Builder) TransitionIterator(state int32) *TransitionIterator {
	return &TransitionIterator{
		b:       b,
		state:   state,
		current: -1,
		started: false,
	}
}

// TransitionIterator walks one state's per-state chain skipping
// tombstones. Adding a transition to the same state mid-iteration is
// allowed (new transitions are appended at the tail and may or may not
// be visited); RemoveState invalidates all iterators.
type TransitionIterator struct {
	b       *Builder
	state   int32
	current int32 // index of the last-yielded transition, or -1
	started bool
}

// Next advances to the next live transition, returning false when the
// chain is exhausted.
func (it *TransitionIterator) Next() bool {
	b := it.b
	var candidate int32
	if !it.started {
		candidate = b.states[it.state].FirstTransition
		it.started = true
	} else if it.current == -1 {
		return false
	} else {
		candidate = b.transitions[it.current].Next
	}

	for candidate != -1 && b.transitions[candidate].Removed {
		candidate = b.transitions[candidate].Next
	}
	it.current = candidate
	return candidate != -1
}

// Transition returns the current transition.
func (it *TransitionIterator) Transition() Transition {
	return it.b.transitions[it.current].Transition
}

// SetTransition replaces the current transition's payload in place.
func (it *TransitionIterator) SetTransition(t Transition) {
	it.b.transitions[it.current].Transition = t
}

// Remove marks the current transition as tombstoned. It asserts it is
// not already removed.
func (it *TransitionIterator) Remove() {
	lt := &it.b.transitions[it.current]
	if lt.Removed {
		panic(ErrDoubleRemoval)
	}
	lt.Removed = true
	it.b.removedCount++
}
