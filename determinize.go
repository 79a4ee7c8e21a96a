package automaton

import (
	"math"
	"sort"
)

// boundEvent is one segment-bound event in the DiscreteChar
// determinization hook's line sweep: a start or end of a contributing
// transition's active range at a given universe position.
type boundEvent struct {
	pos     int
	isStart bool
	weight  Weight
	dest    int32
}

// destAgg accumulates the live contribution of one destination state
// during the sweep: how many open segments target it and their summed
// weight.
type destAgg struct {
	count  int
	weight Weight
}

// DefaultLogEps is the pruning threshold below which a destination's
// accumulated log-weight is treated as negligible during the segment
// sweep: spec's fixed LOG_EPS, exposed here as a configurable default
// rather than hard-coded.
const DefaultLogEps = -35

// SetTransition is one output edge the determinizer's per-element-type
// hook produces for a WeightedStateSet: a label, a weight, and the
// (already normalized) destination set.
type SetTransition struct {
	Dist    ElementDistribution
	Weight  Weight
	NextSet *FrozenStateSet
}

// outgoingTransitionsForSet is the abstraction point the weighted
// powerset construction is parameterized over: given a source set and
// the pruning threshold, it returns the outgoing (label, weight,
// destination-set) triples. DiscreteChar automata use
// discreteCharOutgoingTransitionsForSet.
type outgoingTransitionsForSet func(a *ImmutableAutomaton, set *FrozenStateSet, logEps float64) []SetTransition

// Determinizer performs weighted powerset construction on an
// ImmutableAutomaton. MaxStates and LogEps are both configurable
// (spec's design notes call out LogEps specifically as something that
// should not be hard-coded).
type Determinizer struct {
	MaxStates int
	LogEps    float64
	Hook      outgoingTransitionsForSet
}

// NewDeterminizer returns a Determinizer configured with MaxStates and
// the DiscreteChar sweep hook.
func NewDeterminizer() *Determinizer {
	return &Determinizer{
		MaxStates: MaxStates,
		LogEps:    DefaultLogEps,
		Hook:      discreteCharOutgoingTransitionsForSet,
	}
}

func usesGroups(a *ImmutableAutomaton) bool {
	for _, t := range a.transitions {
		if t.Group != 0 {
			return true
		}
	}
	return false
}

// soleDestination reports the single destination every outgoing
// transition of state shares, if any.
func soleDestination(a *ImmutableAutomaton, state int32) (int32, bool) {
	ts := a.TransitionsFor(state)
	if len(ts) == 0 {
		return 0, false
	}
	dest := ts[0].DestinationState
	for _, t := range ts[1:] {
		if t.DestinationState != dest {
			return 0, false
		}
	}
	return dest, true
}

// TryDeterminize runs the weighted powerset construction described in
// spec.md's Determinizer section. On success it returns a fresh,
// IsDeterminized-marked automaton and true. On refusal (grouped
// transitions) or abort (state budget exhausted) it returns a and
// false; a's states and transitions are left untouched, though a
// refusal does stamp a's determinization tag as
// DeterminizationIsNonDeterminizable.
func (d *Determinizer) TryDeterminize(a *ImmutableAutomaton) (*ImmutableAutomaton, bool) {
	if usesGroups(a) {
		a.determinization = DeterminizationIsNonDeterminizable
		return a, false
	}

	budget := d.MaxStates
	if bound := 3 * a.NumStates(); bound < budget {
		budget = bound
	}

	b := NewZeroBuilder()
	b.SetStartState(0)

	startSet, _ := NewFrozenStateSet([]StateWeight{{State: a.StartStateIndex(), Weight: One}})
	index := NewHashMap[int32](16)
	index.Set(startSet, 0)
	b.StateBuilder(0).SetEndWeight(endWeightForSet(a, startSet))

	queue := []*FrozenStateSet{startSet}
	aborted := false

	for len(queue) > 0 && !aborted {
		q := queue[0]
		queue = queue[1:]
		qState, _ := index.Get(q)

		var produced []SetTransition
		if members := q.Members(); len(members) == 1 {
			if dest, ok := soleDestination(a, members[0].State); ok {
				for _, t := range a.TransitionsFor(members[0].State) {
					nextSet, _ := NewFrozenStateSet([]StateWeight{{State: dest, Weight: One}})
					produced = append(produced, SetTransition{
						Dist:    t.ElementDistribution,
						Weight:  t.Weight,
						NextSet: nextSet,
					})
				}
			}
		}
		if produced == nil {
			produced = d.Hook(a, q, d.LogEps)
		}

		for _, pt := range produced {
			outState, ok := index.Get(pt.NextSet)
			if !ok {
				if b.NumStates() >= budget {
					aborted = true
					break
				}
				newIndex, err := b.AddState()
				if err != nil {
					aborted = true
					break
				}
				index.Set(pt.NextSet, newIndex)
				b.StateBuilder(newIndex).SetEndWeight(endWeightForSet(a, pt.NextSet))
				outState = newIndex
				queue = append(queue, pt.NextSet)
			}
			b.StateBuilder(qState).AddTransitionTo(pt.Dist, pt.Weight, outState)
		}
	}

	if aborted {
		return a, false
	}

	MergeParallelTransitions(b)
	result, err := b.Finalize()
	if err != nil {
		return a, false
	}
	result.determinization = DeterminizationIsDeterminized
	return result, true
}

func endWeightForSet(a *ImmutableAutomaton, set *FrozenStateSet) Weight {
	w := Zero
	for _, m := range set.Members() {
		w = Sum(w, Product(m.Weight, a.State(m.State).EndWeight))
	}
	return w
}

// discreteCharOutgoingTransitionsForSet implements outgoingTransitionsForSet
// for DiscreteChar-labeled automata via a line-sweep over segment-bound
// events, per spec.md's DiscreteChar determinization hook.
func discreteCharOutgoingTransitionsForSet(a *ImmutableAutomaton, q *FrozenStateSet, logEps float64) []SetTransition {
	var events []boundEvent
	emit := func(start, end int, w Weight, dest int32) {
		if w.IsZero() {
			return
		}
		events = append(events,
			boundEvent{pos: start, isStart: true, weight: w, dest: dest},
			boundEvent{pos: end, isStart: false, weight: w, dest: dest},
		)
	}

	for _, m := range q.Members() {
		wSource := m.Weight
		for _, t := range a.TransitionsFor(m.State) {
			rd, ok := t.ElementDistribution.(RangedDistribution)
			if !ok {
				continue
			}
			commonValue := rd.ProbabilityOutsideRanges()
			commonStart := 0
			for _, r := range rd.Ranges() {
				if r.StartInclusive > commonStart && !commonValue.IsZero() {
					emit(commonStart, r.StartInclusive, Product(Product(commonValue, t.Weight), wSource), t.DestinationState)
				}
				if !r.Probability.IsZero() {
					emit(r.StartInclusive, r.EndExclusive, Product(Product(r.Probability, t.Weight), wSource), t.DestinationState)
				}
				commonStart = r.EndExclusive
			}
			if !commonValue.IsZero() && commonStart < UniverseSize {
				emit(commonStart, UniverseSize, Product(Product(commonValue, t.Weight), wSource), t.DestinationState)
			}
		}
	}

	if len(events) == 0 {
		return nil
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		return events[i].isStart && !events[j].isStart
	})

	type activeKey struct {
		logW float64
		dest int32
	}

	active := make(map[activeKey]bool)
	perDest := make(map[int32]*destAgg)
	totalWeight := Zero
	totalCount := 0

	var out []SetTransition
	currentStart := 0
	haveCurrent := false

	i := 0
	for i < len(events) {
		pos := events[i].pos

		if haveCurrent && pos > currentStart && totalCount > 0 && totalWeight.LogValue() > logEps {
			if t, ok := buildSegmentTransition(currentStart, pos, totalWeight, perDest, logEps); ok {
				out = append(out, t)
			}
		}

		for i < len(events) && events[i].pos == pos {
			e := events[i]
			key := activeKey{logW: e.weight.LogValue(), dest: e.dest}

			if e.isStart {
				active[key] = true
				totalCount++
				totalWeight = Sum(totalWeight, e.weight)
				agg, ok := perDest[e.dest]
				if !ok {
					agg = &destAgg{weight: Zero}
					perDest[e.dest] = agg
				}
				agg.count++
				agg.weight = Sum(agg.weight, e.weight)
			} else if math.IsInf(e.weight.LogValue(), 1) {
				delete(active, key)
				totalWeight = Zero
				destWeight := Zero
				destCount := 0
				count := 0
				for k := range active {
					totalWeight = Sum(totalWeight, FromLogValue(k.logW))
					count++
					if k.dest == e.dest {
						destWeight = Sum(destWeight, FromLogValue(k.logW))
						destCount++
					}
				}
				totalCount = count
				if destCount == 0 {
					delete(perDest, e.dest)
				} else {
					perDest[e.dest] = &destAgg{count: destCount, weight: destWeight}
				}
			} else {
				delete(active, key)
				totalWeight, _ = subtractWeight(totalWeight, e.weight)
				totalCount--
				if agg, ok := perDest[e.dest]; ok {
					agg.weight, _ = subtractWeight(agg.weight, e.weight)
					agg.count--
					if agg.count <= 0 {
						delete(perDest, e.dest)
					}
				}
			}
			i++
		}

		currentStart = pos
		haveCurrent = true
	}

	return out
}

func buildSegmentTransition(start, end int, totalWeight Weight, perDest map[int32]*destAgg, logEps float64) (SetTransition, bool) {
	invTotal, err := Inverse(totalWeight)
	if err != nil {
		return SetTransition{}, false
	}

	setBuilder := NewWeightedStateSetBuilder()
	for dest, agg := range perDest {
		if agg.weight.LogValue() <= logEps {
			continue
		}
		setBuilder.Add(dest, Product(agg.weight, invTotal))
	}
	if setBuilder.Len() == 0 {
		return SetTransition{}, false
	}

	nextSet, normalizer := setBuilder.Get()
	width := FromValue(float64(end - start))
	weight := Product(Product(width, totalWeight), normalizer)
	return SetTransition{
		Dist:    Uniform(start, end),
		Weight:  weight,
		NextSet: nextSet,
	}, true
}
