package crdt

import (
	"errors"
	"fmt"

	"github.com/causalgraph/crdtdb/causalgraph"
)

// Sentinel errors for the fatal conditions applyRemoteOp can raise. Callers
// distinguish them with errors.Is; the wrapped message carries the detail.
var (
	// ErrDuplicate is raised by createCRDT when asked to create a node at an
	// id that already exists in the node table. This indicates a programmer
	// bug in the merge engine itself, never a malformed remote operation.
	ErrDuplicate = errors.New("crdt: duplicate node id")

	// ErrInvalidTarget is raised when an action's kind does not match the
	// variant of the node it targets (e.g. a setInsert against a map).
	ErrInvalidTarget = errors.New("crdt: action kind does not match target node variant")

	// ErrInvalidParents is raised when a register merge retains an old pair
	// that is actually dominated by the incoming operation's global parents:
	// the author should have named it in localParents but didn't.
	ErrInvalidParents = errors.New("crdt: retained register pair is not concurrent with operation")

	// ErrUnknownRawVersion is raised when a RawVersion can't be translated to
	// an LV because it (or one of its parents) hasn't been admitted yet.
	ErrUnknownRawVersion = errors.New("crdt: raw version not known to causal graph")
)

// mergeError wraps a sentinel with the operation it was raised for, so a
// %w-unwrapping caller still gets errors.Is(err, ErrInvalidParents) etc. while
// a %v-formatting caller gets a self-describing message.
type mergeError struct {
	sentinel error
	op       causalgraph.RawVersion
	detail   string
}

func (e *mergeError) Error() string {
	return fmt.Sprintf("crdt: op %s/%d: %s: %s", e.op.Agent, e.op.Seq, e.sentinel, e.detail)
}

func (e *mergeError) Unwrap() error { return e.sentinel }

func invalidTargetErr(op causalgraph.RawVersion, wantKind, gotKind NodeKind) error {
	return &mergeError{
		sentinel: ErrInvalidTarget,
		op:       op,
		detail:   fmt.Sprintf("action expects a %s node but target is a %s node", wantKind, gotKind),
	}
}

func invalidParentsErr(op causalgraph.RawVersion, retained causalgraph.LV) error {
	return &mergeError{
		sentinel: ErrInvalidParents,
		op:       op,
		detail:   fmt.Sprintf("pair at LV %d is dominated by the operation's global parents", retained),
	}
}

func duplicateNodeErr(op causalgraph.RawVersion, id causalgraph.LV) error {
	return &mergeError{
		sentinel: ErrDuplicate,
		op:       op,
		detail:   fmt.Sprintf("node %d already exists", id),
	}
}

func unknownRawVersionErr(op causalgraph.RawVersion, detail string) error {
	return &mergeError{sentinel: ErrUnknownRawVersion, op: op, detail: detail}
}
