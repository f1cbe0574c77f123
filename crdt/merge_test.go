package crdt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/causalgraph/crdtdb/causalgraph"
)

func TestApplyRemoteOp_DuplicateIsIdempotent(t *testing.T) {
	r := newTestReplica("a")

	op := Operation{
		ID:            causalgraph.RawVersion{Agent: "a", Seq: 0},
		GlobalParents: []causalgraph.RawVersion{},
		CRDTID:        Root,
		Action: Action{
			Kind: ActionMap,
			Key:  "x",
			Val:  CreatePrimitiveValue(IntValue(1)),
		},
	}

	first, err := r.ApplyRemoteOp(op)
	require.NoError(t, err)
	require.Equal(t, Applied, first.Outcome)

	second, err := r.ApplyRemoteOp(op)
	require.NoError(t, err)
	require.Equal(t, Duplicate, second.Outcome)

	root, err := r.GetRoot()
	require.NoError(t, err)
	require.Equal(t, int64(1), root.Map["x"].Prim.Int)
}

func TestApplyRemoteOp_MissingTargetIsSoft(t *testing.T) {
	r := newTestReplica("a")

	fakeTargetID, err := r.LocalMapInsert(Root, "gone", CreateCRDTValue(KindMap))
	require.NoError(t, err)

	// Overwriting "gone" with a primitive reclaims the map node just created.
	_, err = r.LocalMapInsert(Root, "gone", CreatePrimitiveValue(NullValue()))
	require.NoError(t, err)

	// Now fakeTargetID's node has been reclaimed; an operation that still
	// targets it must be admitted with no effect, not fail outright.
	op := Operation{
		ID:            causalgraph.RawVersion{Agent: "b", Seq: 0},
		GlobalParents: []causalgraph.RawVersion{},
		CRDTID:        fakeTargetID,
		Action: Action{
			Kind: ActionMap,
			Key:  "y",
			Val:  CreatePrimitiveValue(IntValue(1)),
		},
	}
	result, err := r.ApplyRemoteOp(op)
	require.NoError(t, err)
	require.Equal(t, MissingTarget, result.Outcome)
}

func TestApplyRemoteOp_InvalidParentsRejected(t *testing.T) {
	r := newTestReplica("a")

	id1, err := r.LocalMapInsert(Root, "name", CreatePrimitiveValue(StringValue("alice")))
	require.NoError(t, err)

	// An operation that claims to have observed id1 (it's in its
	// GlobalParents) but doesn't supersede it via LocalParents is malformed.
	op := Operation{
		ID:            causalgraph.RawVersion{Agent: "b", Seq: 0},
		GlobalParents: []causalgraph.RawVersion{id1},
		CRDTID:        Root,
		Action: Action{
			Kind: ActionMap,
			Key:  "name",
			Val:  CreatePrimitiveValue(StringValue("carol")),
		},
	}
	_, err = r.ApplyRemoteOp(op)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidParents))
}

func TestApplyRemoteOp_InvalidTargetKindRejected(t *testing.T) {
	r := newTestReplica("a")

	setID, err := r.LocalMapInsert(Root, "tags", CreateCRDTValue(KindSet))
	require.NoError(t, err)

	// A registerSet action against a set node is a shape mismatch.
	op := Operation{
		ID:            causalgraph.RawVersion{Agent: "a", Seq: 5},
		GlobalParents: []causalgraph.RawVersion{setID},
		CRDTID:        setID,
		Action: Action{
			Kind: ActionRegisterSet,
			Val:  CreatePrimitiveValue(IntValue(1)),
		},
	}
	_, err = r.ApplyRemoteOp(op)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidTarget))
}
