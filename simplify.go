package automaton

import "github.com/bits-and-blooms/bitset"

// RangedDistribution is satisfied by element distributions that expose
// their probability mass as ranges (DiscreteChar does). It is the hook
// MergeParallelTransitions uses to combine distributions generically;
// a distribution that doesn't implement it is left unmerged.
type RangedDistribution interface {
	ElementDistribution
	Ranges() []CharRange
	ProbabilityOutsideRanges() Weight
}

var _ RangedDistribution = DiscreteChar{}

type parallelKey struct {
	dest  int32
	group int32
}

// MergeParallelTransitions groups each state's outgoing live
// transitions by (destination, group) and replaces each group by one
// transition whose weight is the sum of the members' weights and whose
// element distribution is the weighted union of members' distributions.
// Epsilon transitions (nil distribution) merge only with other epsilon
// transitions. Members whose distribution does not implement
// RangedDistribution are left unmerged (kept as separate transitions)
// since their probability mass can't generically be combined.
func MergeParallelTransitions(b *Builder) {
	for state := 0; state < b.NumStates(); state++ {
		epsilonGroups := make(map[parallelKey][]Transition)
		rangedGroups := make(map[parallelKey][]Transition)
		var order []parallelKey
		seen := make(map[parallelKey]bool)

		it := b.TransitionIterator(int32(state))
		for it.Next() {
			t := it.Transition()
			if t.IsEpsilon() {
				key := parallelKey{dest: t.DestinationState, group: t.Group}
				epsilonGroups[key] = append(epsilonGroups[key], t)
				if !seen[key] {
					seen[key] = true
					order = append(order, key)
				}
				it.Remove()
				continue
			}
			if _, ok := t.ElementDistribution.(RangedDistribution); !ok {
				// left as-is: not mergeable
				continue
			}
			key := parallelKey{dest: t.DestinationState, group: t.Group}
			rangedGroups[key] = append(rangedGroups[key], t)
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
			it.Remove()
		}

		for _, key := range order {
			if members, ok := epsilonGroups[key]; ok {
				b.StateBuilder(int32(state)).AddTransition(mergeGroup(members))
			}
			if members, ok := rangedGroups[key]; ok {
				b.StateBuilder(int32(state)).AddTransition(mergeGroup(members))
			}
		}
	}
}

func mergeGroup(members []Transition) Transition {
	if len(members) == 1 {
		return members[0]
	}

	sum := Zero
	for _, m := range members {
		sum = Sum(sum, m.Weight)
	}

	if members[0].IsEpsilon() {
		return Transition{Weight: sum, DestinationState: members[0].DestinationState, Group: members[0].Group}
	}

	inv, err := Inverse(sum)
	var ranges []CharRange
	outside := Zero
	for _, m := range members {
		share := Zero
		if err == nil {
			share = Product(m.Weight, inv)
		}
		rd := m.ElementDistribution.(RangedDistribution)
		for _, r := range rd.Ranges() {
			ranges = append(ranges, CharRange{
				StartInclusive: r.StartInclusive,
				EndExclusive:   r.EndExclusive,
				Probability:    Product(r.Probability, share),
			})
		}
		outside = Sum(outside, Product(rd.ProbabilityOutsideRanges(), share))
	}

	return Transition{
		ElementDistribution: NewDiscreteChar(ranges, outside),
		Weight:              sum,
		DestinationState:    members[0].DestinationState,
		Group:               members[0].Group,
	}
}

// PruneStatesWithLogEndWeightLessThan removes every state that cannot
// reach (via zero or more forward transitions) some state whose end
// weight's log value exceeds threshold. It computes that reachability
// on the reverse transition graph seeded from the above-threshold
// states, then removes everything else via RemoveStates.
func PruneStatesWithLogEndWeightLessThan(b *Builder, threshold float64) int {
	n := b.NumStates()
	reverse := make([][]int32, n)
	for state := 0; state < n; state++ {
		it := b.TransitionIterator(int32(state))
		for it.Next() {
			t := it.Transition()
			reverse[t.DestinationState] = append(reverse[t.DestinationState], int32(state))
		}
	}

	keep := bitset.New(uint(n))
	var queue []int32
	for state := 0; state < n; state++ {
		if b.EndWeight(int32(state)).LogValue() > threshold {
			if !keep.Test(uint(state)) {
				keep.Set(uint(state))
				queue = append(queue, int32(state))
			}
		}
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, pred := range reverse[s] {
			if !keep.Test(uint(pred)) {
				keep.Set(uint(pred))
				queue = append(queue, pred)
			}
		}
	}

	toRemove := make([]bool, n)
	for i := 0; i < n; i++ {
		toRemove[i] = !keep.Test(uint(i))
	}
	return b.RemoveStates(toRemove, true)
}
