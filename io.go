package automaton

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WireVersionHash is the f64 stamp WriteAutomaton writes first and
// ReadAutomaton checks first: a stream stamped with a different value
// is rejected rather than silently misparsed.
const WireVersionHash float64 = 20260730.1

// WriteAutomaton serializes a in the fixed binary layout documented for
// StringAutomaton: a f64 version stamp, the state array, the
// transition array, the start index, and the epsilon-free flag, all in
// host byte order.
func WriteAutomaton(w io.Writer, a *ImmutableAutomaton) error {
	if err := writeF64(w, WireVersionHash); err != nil {
		return err
	}
	if err := writeI32(w, int32(len(a.states))); err != nil {
		return err
	}
	for _, s := range a.states {
		if err := writeState(w, s); err != nil {
			return err
		}
	}
	if err := writeI32(w, int32(len(a.transitions))); err != nil {
		return err
	}
	for _, t := range a.transitions {
		if err := writeTransition(w, t); err != nil {
			return err
		}
	}
	if err := writeI32(w, a.startStateIndex); err != nil {
		return err
	}
	return writeU8(w, boolToU8(a.isEpsilonFree))
}

// ReadAutomaton deserializes an ImmutableAutomaton written by
// WriteAutomaton. It returns ErrWireVersionMismatch if the stream's
// version stamp does not match WireVersionHash.
func ReadAutomaton(r io.Reader) (*ImmutableAutomaton, error) {
	version, err := readF64(r)
	if err != nil {
		return nil, err
	}
	if version != WireVersionHash {
		return nil, ErrWireVersionMismatch
	}

	stateCount, err := readI32(r)
	if err != nil {
		return nil, err
	}
	states := make([]StateData, stateCount)
	for i := range states {
		states[i], err = readState(r)
		if err != nil {
			return nil, err
		}
	}

	transitionCount, err := readI32(r)
	if err != nil {
		return nil, err
	}
	transitions := make([]Transition, transitionCount)
	epsilonFree := true
	for i := range transitions {
		transitions[i], err = readTransition(r)
		if err != nil {
			return nil, err
		}
		if transitions[i].IsEpsilon() {
			epsilonFree = false
		}
	}

	start, err := readI32(r)
	if err != nil {
		return nil, err
	}
	wireEpsilonFree, err := readU8(r)
	if err != nil {
		return nil, err
	}
	if (wireEpsilonFree != 0) != epsilonFree {
		return nil, ErrEpsilonFlagMismatch
	}

	return newImmutableAutomaton(states, transitions, start, epsilonFree), nil
}

func writeState(w io.Writer, s StateData) error {
	if err := writeI32(w, s.FirstTransition); err != nil {
		return err
	}
	if err := writeI32(w, s.LastTransition); err != nil {
		return err
	}
	return writeF64(w, s.EndWeight.LogValue())
}

func readState(r io.Reader) (StateData, error) {
	first, err := readI32(r)
	if err != nil {
		return StateData{}, err
	}
	last, err := readI32(r)
	if err != nil {
		return StateData{}, err
	}
	endLog, err := readF64(r)
	if err != nil {
		return StateData{}, err
	}
	return StateData{FirstTransition: first, LastTransition: last, EndWeight: FromLogValue(endLog)}, nil
}

func writeTransition(w io.Writer, t Transition) error {
	has := t.ElementDistribution != nil
	if err := writeU8(w, boolToU8(has)); err != nil {
		return err
	}
	if has {
		dc, ok := t.ElementDistribution.(DiscreteChar)
		if !ok {
			return fmt.Errorf("automaton: cannot serialize element distribution of type %T", t.ElementDistribution)
		}
		if err := writeDiscreteChar(w, dc); err != nil {
			return err
		}
	}
	if err := writeF64(w, t.Weight.LogValue()); err != nil {
		return err
	}
	if err := writeI32(w, t.DestinationState); err != nil {
		return err
	}
	return writeI32(w, t.Group)
}

func readTransition(r io.Reader) (Transition, error) {
	has, err := readU8(r)
	if err != nil {
		return Transition{}, err
	}
	var dist ElementDistribution
	if has != 0 {
		dc, err := readDiscreteChar(r)
		if err != nil {
			return Transition{}, err
		}
		dist = dc
	}
	weightLog, err := readF64(r)
	if err != nil {
		return Transition{}, err
	}
	dest, err := readI32(r)
	if err != nil {
		return Transition{}, err
	}
	group, err := readI32(r)
	if err != nil {
		return Transition{}, err
	}
	return Transition{ElementDistribution: dist, Weight: FromLogValue(weightLog), DestinationState: dest, Group: group}, nil
}

func writeDiscreteChar(w io.Writer, d DiscreteChar) error {
	ranges := d.Ranges()
	if err := writeI32(w, int32(len(ranges))); err != nil {
		return err
	}
	for _, rg := range ranges {
		if err := writeI32(w, int32(rg.StartInclusive)); err != nil {
			return err
		}
		if err := writeI32(w, int32(rg.EndExclusive)); err != nil {
			return err
		}
		if err := writeF64(w, rg.Probability.LogValue()); err != nil {
			return err
		}
	}
	return writeF64(w, d.ProbabilityOutsideRanges().LogValue())
}

func readDiscreteChar(r io.Reader) (DiscreteChar, error) {
	count, err := readI32(r)
	if err != nil {
		return DiscreteChar{}, err
	}
	ranges := make([]CharRange, count)
	for i := range ranges {
		start, err := readI32(r)
		if err != nil {
			return DiscreteChar{}, err
		}
		end, err := readI32(r)
		if err != nil {
			return DiscreteChar{}, err
		}
		probLog, err := readF64(r)
		if err != nil {
			return DiscreteChar{}, err
		}
		ranges[i] = CharRange{StartInclusive: int(start), EndExclusive: int(end), Probability: FromLogValue(probLog)}
	}
	commonLog, err := readF64(r)
	if err != nil {
		return DiscreteChar{}, err
	}
	// Ranges read off the wire are already disjoint and ascending; build
	// the value directly rather than re-running NewDiscreteChar's merge
	// sweep.
	return DiscreteChar{ranges: ranges, probabilityOutside: FromLogValue(commonLog)}, nil
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func writeF64(w io.Writer, v float64) error {
	return binary.Write(w, binary.NativeEndian, v)
}

func readF64(r io.Reader) (float64, error) {
	var v float64
	err := binary.Read(r, binary.NativeEndian, &v)
	return v, err
}

func writeI32(w io.Writer, v int32) error {
	return binary.Write(w, binary.NativeEndian, v)
}

func readI32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.NativeEndian, &v)
	return v, err
}

func writeU8(w io.Writer, v uint8) error {
	return binary.Write(w, binary.NativeEndian, v)
}

func readU8(r io.Reader) (uint8, error) {
	var v uint8
	err := binary.Read(r, binary.NativeEndian, &v)
	return v, err
}
