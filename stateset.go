package automaton

import "sort"

// weightTolerance is the log-value tolerance spec.md §3 mandates for
// WeightedStateSet weight equality.
const weightTolerance = 1e-6

// StateWeight is one (source-state, weight) pair of a WeightedStateSet.
type StateWeight struct {
	State  int32
	Weight Weight
}

// WeightedStateSetBuilder accumulates (state, weight) contributions —
// summing weights when the same state is added more than once — and
// freezes them into a normalized FrozenStateSet.
type WeightedStateSetBuilder struct {
	weights map[int32]Weight
}

// NewWeightedStateSetBuilder returns an empty builder.
func NewWeightedStateSetBuilder() *WeightedStateSetBuilder {
	return &WeightedStateSetBuilder{weights: make(map[int32]Weight)}
}

// Add folds w into state's accumulated weight via Sum.
func (b *WeightedStateSetBuilder) Add(state int32, w Weight) {
	prev, ok := b.weights[state]
	if !ok {
		prev = Zero
	}
	b.weights[state] = Sum(prev, w)
}

// Len reports how many distinct states have been added so far.
func (b *WeightedStateSetBuilder) Len() int {
	return len(b.weights)
}

// Get freezes the accumulated set: states are ordered by strictly
// increasing index, and weights are normalized so the maximum member
// weight is One. The pre-normalization maximum is returned separately
// so callers can fold it into an outgoing transition weight.
func (b *WeightedStateSetBuilder) Get() (*FrozenStateSet, Weight) {
	pairs := make([]StateWeight, 0, len(b.weights))
	for s, w := range b.weights {
		pairs = append(pairs, StateWeight{State: s, Weight: w})
	}
	return newFrozenStateSet(pairs)
}

// FrozenStateSet is an ordered, deduplicated, normalized
// WeightedStateSet: a determinizer output state is uniquely identified
// by one of these. Equality/hashing use a hybrid scheme: indices compare
// exactly, weights compare within weightTolerance on their log value; the
// hash mixes the state index with the high 32 bits of the IEEE-754 log
// value so near-equal weights collide while grossly unequal ones do not.
type FrozenStateSet struct {
	members []StateWeight // sorted ascending by State
	hash    uint64
}

var _ Hashable = (*FrozenStateSet)(nil)

// NewFrozenStateSet freezes an already-collected (not necessarily
// normalized) set of pairs directly, without going through a builder.
// Used for the determinizer's initial work item {(start, One)}.
func NewFrozenStateSet(pairs []StateWeight) (*FrozenStateSet, Weight) {
	return newFrozenStateSet(pairs)
}

func newFrozenStateSet(pairs []StateWeight) (*FrozenStateSet, Weight) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].State < pairs[j].State })

	max := Zero
	for _, p := range pairs {
		max = MaxWeight(max, p.Weight)
	}

	normalized := make([]StateWeight, len(pairs))
	for i, p := range pairs {
		w := p.Weight
		if !max.IsZero() {
			inv, err := Inverse(max)
			if err == nil {
				w = Product(p.Weight, inv)
			}
		}
		normalized[i] = StateWeight{State: p.State, Weight: w}
	}

	fs := &FrozenStateSet{members: normalized}
	fs.hash = fs.computeHash()
	return fs, max
}

func (f *FrozenStateSet) computeHash() uint64 {
	h := uint64(len(f.members))
	for _, m := range f.members {
		h += uint64(mix(int(m.State)))
		h += uint64(mixWeightHigh32(m.Weight.LogValue()))
	}
	return h
}

// Hash returns the coarse hash used for bucket placement.
func (f *FrozenStateSet) Hash() uint64 {
	return f.hash
}

// Equals compares two FrozenStateSets: exact index sequence, weights
// within weightTolerance on their log value.
func (f *FrozenStateSet) Equals(other Hashable) bool {
	o, ok := other.(*FrozenStateSet)
	if !ok {
		return false
	}
	if len(f.members) != len(o.members) {
		return false
	}
	for i, m := range f.members {
		om := o.members[i]
		if m.State != om.State {
			return false
		}
		diff := m.Weight.LogValue() - om.Weight.LogValue()
		if diff < 0 {
			diff = -diff
		}
		if diff > weightTolerance {
			return false
		}
	}
	return true
}

// Members returns the set's ordered (state, normalized weight) pairs.
func (f *FrozenStateSet) Members() []StateWeight {
	return f.members
}

// Len returns the number of distinct states in the set.
func (f *FrozenStateSet) Len() int {
	return len(f.members)
}
