package automaton

import "errors"

// Named failure kinds a Builder or ImmutableAutomaton operation can
// return. Callers should compare with errors.Is.
var (
	// ErrTooLarge is returned when a Builder mutation would push the
	// state count past MaxStates.
	ErrTooLarge = errors.New("automaton: too large")

	// ErrInvalidStart is returned by Finalize when start_state_index is
	// out of range.
	ErrInvalidStart = errors.New("automaton: invalid start state")

	// ErrIndicesOutOfRange is returned by CheckConsistency when a state
	// or transition range violates the layout invariants.
	ErrIndicesOutOfRange = errors.New("automaton: indices out of range")

	// ErrDomainError is returned by Weight.Inverse on Zero.
	ErrDomainError = errors.New("automaton: domain error")

	// ErrDoubleRemoval is the panic value of TransitionIterator.Remove
	// when it is asked to mark an already-tombstoned transition as
	// removed.
	ErrDoubleRemoval = errors.New("automaton: transition already removed")

	// ErrWireVersionMismatch is returned by ReadAutomaton when a stream's
	// version stamp does not match WireVersionHash.
	ErrWireVersionMismatch = errors.New("automaton: wire format version mismatch")

	// ErrEpsilonFlagMismatch is returned by ReadAutomaton when the stored
	// epsilon-free flag disagrees with what the decoded transitions show.
	ErrEpsilonFlagMismatch = errors.New("automaton: epsilon-free flag mismatch")
)
