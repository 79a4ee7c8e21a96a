package automaton

import "sort"

// UniverseSize is the size of the DiscreteChar element space, [0, 65536).
const UniverseSize = 65536

// ElementDistribution is the abstraction a WFSA transition's label draws
// from. Concrete element spaces (characters, tokens, bytes, ...) satisfy
// it by reporting the probability mass assigned to a single element.
// Determinization over a concrete element type is not generic: it is
// provided per-type via an outgoing_transitions_for_set hook (see
// Determinizer and discreteCharOutgoingTransitionsForSet).
type ElementDistribution interface {
	// Probability returns the weight assigned to a single element.
	Probability(element int) Weight
}

// CharRange is one half-open, disjoint, ascending segment of a
// DiscreteChar distribution: elements in [StartInclusive, EndExclusive)
// share Probability.
type CharRange struct {
	StartInclusive int
	EndExclusive   int
	Probability    Weight
}

// DiscreteChar is a weighted union of half-open integer ranges over
// [0, UniverseSize), plus a background "common value" applied uniformly
// to every element not covered by a range.
type DiscreteChar struct {
	ranges             []CharRange // ascending, disjoint, end-exclusive
	probabilityOutside Weight
}

var _ ElementDistribution = DiscreteChar{}

// Uniform returns a DiscreteChar assigning One to every element in
// [start, end) and Zero elsewhere.
func Uniform(start, end int) DiscreteChar {
	return InRange(start, end)
}

// InRange is an alias of Uniform kept for readability at call sites that
// mirror spec wording ("DiscreteChar::in_range").
func InRange(start, end int) DiscreteChar {
	if start >= end {
		return DiscreteChar{probabilityOutside: Zero}
	}
	return DiscreteChar{
		ranges:             []CharRange{{StartInclusive: start, EndExclusive: end, Probability: One}},
		probabilityOutside: Zero,
	}
}

// Point returns a DiscreteChar assigning One to exactly one element.
func Point(element int) DiscreteChar {
	return InRange(element, element+1)
}

// NewDiscreteChar builds a DiscreteChar from an arbitrary (not
// necessarily sorted or disjoint) set of ranges plus a common value. The
// ranges are sorted, and overlapping ranges are merged by summing their
// probabilities over the overlap (callers that already hold a disjoint,
// ascending set may skip straight to that representation).
func NewDiscreteChar(ranges []CharRange, probabilityOutside Weight) DiscreteChar {
	if len(ranges) == 0 {
		return DiscreteChar{probabilityOutside: probabilityOutside}
	}

	type bound struct {
		pos     int
		isStart bool
		weight  Weight
	}
	bounds := make([]bound, 0, len(ranges)*2)
	for _, r := range ranges {
		if r.StartInclusive >= r.EndExclusive || r.Probability.IsZero() {
			continue
		}
		bounds = append(bounds,
			bound{pos: r.StartInclusive, isStart: true, weight: r.Probability},
			bound{pos: r.EndExclusive, isStart: false, weight: r.Probability},
		)
	}
	sort.Slice(bounds, func(i, j int) bool {
		if bounds[i].pos != bounds[j].pos {
			return bounds[i].pos < bounds[j].pos
		}
		return bounds[i].isStart && !bounds[j].isStart
	})

	var out []CharRange
	active := Zero
	var segStart int
	haveSeg := false
	for i := 0; i < len(bounds); {
		pos := bounds[i].pos
		if haveSeg && pos > segStart && !active.IsZero() {
			out = append(out, CharRange{StartInclusive: segStart, EndExclusive: pos, Probability: active})
		}
		for i < len(bounds) && bounds[i].pos == pos {
			if bounds[i].isStart {
				active = Sum(active, bounds[i].weight)
			} else {
				active, _ = subtractWeight(active, bounds[i].weight)
			}
			i++
		}
		segStart = pos
		haveSeg = true
	}

	return DiscreteChar{ranges: mergeAdjacent(out), probabilityOutside: probabilityOutside}
}

// subtractWeight removes w from total using AbsoluteDifference, treating
// a result indistinguishable from zero as exactly Zero to avoid
// accumulating log-space noise across many merges.
func subtractWeight(total, w Weight) (Weight, bool) {
	d := AbsoluteDifference(total, w)
	if d.LogValue() < -1e9 {
		return Zero, true
	}
	return d, false
}

func mergeAdjacent(rs []CharRange) []CharRange {
	if len(rs) == 0 {
		return rs
	}
	out := rs[:1]
	for _, r := range rs[1:] {
		last := &out[len(out)-1]
		if last.EndExclusive == r.StartInclusive && last.Probability.Equal(r.Probability) {
			last.EndExclusive = r.EndExclusive
			continue
		}
		out = append(out, r)
	}
	return out
}

// Ranges returns the finite, ascending, disjoint, end-exclusive ranges
// of this distribution.
func (d DiscreteChar) Ranges() []CharRange {
	return d.ranges
}

// ProbabilityOutsideRanges returns the common value applied to every
// element not covered by Ranges.
func (d DiscreteChar) ProbabilityOutsideRanges() Weight {
	return d.probabilityOutside
}

// Probability returns the weight assigned to a single element.
func (d DiscreteChar) Probability(element int) Weight {
	// Ranges are ascending and disjoint; binary search for containment.
	i := sort.Search(len(d.ranges), func(i int) bool {
		return d.ranges[i].EndExclusive > element
	})
	if i < len(d.ranges) && d.ranges[i].StartInclusive <= element {
		return d.ranges[i].Probability
	}
	return d.probabilityOutside
}
