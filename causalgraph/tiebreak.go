package causalgraph

import "fmt"

// RegisterEntry is one surviving pair of a multi-value register, as seen by
// the causal graph: an LV together with the opaque value it carries. The
// causal graph only needs the LV to resolve a RawVersion for tie-breaking;
// the value itself is round-tripped untouched.
type RegisterEntry[T any] struct {
	Version LV
	Value   T
}

// TieBreakRegisters deterministically picks one entry out of a non-empty set
// of concurrently surviving multi-value register pairs. Two replicas that
// have integrated the same set of operations must agree on the pick without
// comparing local LVs (LV numbering is replica-specific), so the choice is a
// pure function of each pair's RawVersion: highest agent id wins, ties broken
// by highest sequence number. This mirrors the "last writer wins by raw id"
// convention used across the CRDT literature.
//
// TieBreakRegisters panics if pairs is empty; every MVRegister always holds
// at least one pair, so an empty call indicates a caller bug rather than a
// data condition to recover from.
func TieBreakRegisters[T any](cg *CausalGraph, pairs []RegisterEntry[T]) (RegisterEntry[T], error) {
	if len(pairs) == 0 {
		panic("causalgraph: TieBreakRegisters called with no pairs")
	}

	best := pairs[0]
	bestRaw, ok := LVToRaw(cg, best.Version)
	if !ok {
		return RegisterEntry[T]{}, unknownRawVersionErr(best.Version)
	}

	for _, cand := range pairs[1:] {
		candRaw, ok := LVToRaw(cg, cand.Version)
		if !ok {
			return RegisterEntry[T]{}, unknownRawVersionErr(cand.Version)
		}
		if rawVersionLess(bestRaw, candRaw) {
			best, bestRaw = cand, candRaw
		}
	}
	return best, nil
}

// rawVersionLess reports whether a sorts before b in tie-break priority order
// (b wins ties). Ordering is purely by agent id then sequence number, so it
// never depends on local version numbering and is identical on every replica.
func rawVersionLess(a, b RawVersion) bool {
	if a.Agent != b.Agent {
		return a.Agent < b.Agent
	}
	return a.Seq < b.Seq
}

func unknownRawVersionErr(v LV) error {
	return &UnknownRawVersionError{LV: v}
}

// UnknownRawVersionError is returned when an LV that should be known to the
// causal graph cannot be translated back to a RawVersion.
type UnknownRawVersionError struct {
	LV LV
}

func (e *UnknownRawVersionError) Error() string {
	return fmt.Sprintf("causalgraph: no raw version known for LV %d", e.LV)
}
