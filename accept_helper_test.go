package automaton

// acceptWeight walks a (possibly non-deterministic, epsilon-containing)
// automaton over a sequence of elements and returns the total weight of
// every path consistent with it, folded with the reached states' end
// weights. It exists only to check spec.md's testable scenarios without
// a public "run/match" API — adapted from the teacher's deterministic
// rune-stepping Run into a weighted, epsilon-closing walk.
func acceptWeight(a *ImmutableAutomaton, elements []int) (Weight, bool) {
	dist := epsilonClose(a, map[int32]Weight{a.StartStateIndex(): One})
	for _, elem := range elements {
		next := make(map[int32]Weight)
		for state, w := range dist {
			for _, t := range a.TransitionsFor(state) {
				if t.IsEpsilon() {
					continue
				}
				p := t.ElementDistribution.Probability(elem)
				if p.IsZero() {
					continue
				}
				prev, seen := next[t.DestinationState]
				if !seen {
					prev = Zero
				}
				next[t.DestinationState] = Sum(prev, Product(Product(w, t.Weight), p))
			}
		}
		dist = epsilonClose(a, next)
	}

	total := Zero
	for state, w := range dist {
		total = Sum(total, Product(w, a.State(state).EndWeight))
	}
	return total, !total.IsZero()
}

func epsilonClose(a *ImmutableAutomaton, dist map[int32]Weight) map[int32]Weight {
	add := func(m map[int32]Weight, s int32, w Weight) {
		if prev, ok := m[s]; ok {
			w = Sum(prev, w)
		}
		m[s] = w
	}
	out := make(map[int32]Weight, len(dist))
	for s, w := range dist {
		add(out, s, w)
	}

	// Each round pushes only the weight that arrived in the previous
	// round one epsilon edge further, so every epsilon path counts once.
	limit := a.NumStates() + 1
	pending := out
	for steps := 0; len(pending) > 0 && steps < limit; steps++ {
		arrived := make(map[int32]Weight)
		for s, w := range pending {
			for _, t := range a.TransitionsFor(s) {
				if t.IsEpsilon() {
					add(arrived, t.DestinationState, Product(w, t.Weight))
				}
			}
		}
		for s, w := range arrived {
			add(out, s, w)
		}
		pending = arrived
	}
	return out
}
