package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/causalgraph/crdtdb/causalgraph"
)

func TestLocalMapInsert_SingleWriterOverwrite(t *testing.T) {
	r := newTestReplica("a")

	_, err := r.LocalMapInsert(Root, "name", CreatePrimitiveValue(StringValue("alice")))
	require.NoError(t, err)

	root, err := r.GetRoot()
	require.NoError(t, err)
	require.Equal(t, DBMap, root.Kind)
	require.Equal(t, "alice", root.Map["name"].Prim.Str)

	_, err = r.LocalMapInsert(Root, "name", CreatePrimitiveValue(StringValue("bob")))
	require.NoError(t, err)

	root, err = r.GetRoot()
	require.NoError(t, err)
	require.Equal(t, "bob", root.Map["name"].Prim.Str)
}

func TestLocalMapInsert_ConcurrentWritesSurviveUntilResolved(t *testing.T) {
	r := newTestReplica("a")

	_, err := r.LocalMapInsert(Root, "name", CreatePrimitiveValue(StringValue("alice")))
	require.NoError(t, err)

	// Simulate a concurrent write from another agent that never observed
	// the first pair: an empty GlobalParents means op2 is concurrent with
	// everything already in the graph, so the first pair is retained
	// rather than treated as dominated-but-unsuperseded.
	op2 := Operation{
		ID:            causalgraph.RawVersion{Agent: "b", Seq: 0},
		GlobalParents: []causalgraph.RawVersion{},
		CRDTID:        Root,
		Action: Action{
			Kind: ActionMap,
			Key:  "name",
			Val:  CreatePrimitiveValue(StringValue("carol")),
		},
	}
	result, err := r.ApplyRemoteOp(op2)
	require.NoError(t, err)
	require.Equal(t, Applied, result.Outcome)

	node, ok := r.model.getNode(RootLV)
	require.True(t, ok)
	require.Len(t, node.Registers["name"].Pairs, 2)

	// A local write always observes and supersedes whatever pairs are
	// currently present, without the caller having to name either one.
	_, err = r.LocalMapInsert(Root, "name", CreatePrimitiveValue(StringValue("dave")))
	require.NoError(t, err)

	node, _ = r.model.getNode(RootLV)
	require.Len(t, node.Registers["name"].Pairs, 1)

	root, err := r.GetRoot()
	require.NoError(t, err)
	require.Equal(t, "dave", root.Map["name"].Prim.Str)
}

func TestLocalMapInsert_NestedCRDTReclaimedOnOverwrite(t *testing.T) {
	r := newTestReplica("a")

	_, err := r.LocalMapInsert(Root, "profile", CreateCRDTValue(KindMap))
	require.NoError(t, err)

	node, _ := r.model.getNode(RootLV)
	profileLV := node.Registers["profile"].Pairs[0].Value.CRDTID
	require.Equal(t, 2, r.model.liveNodeCount()) // root + profile

	_, err = r.LocalMapInsert(Root, "profile", CreatePrimitiveValue(NullValue()))
	require.NoError(t, err)

	_, stillLive := r.model.getNode(profileLV)
	require.False(t, stillLive, "overwriting a register pair that owned a nested CRDT must reclaim it")
	require.Equal(t, 1, r.model.liveNodeCount())
}

func TestLocalSetInsertAndDelete(t *testing.T) {
	r := newTestReplica("a")

	// The operation that creates a nested CRDT is also the RawVersion
	// identifying that CRDT node, since the merge engine assigns the new
	// node's id from the creating operation's own LV.
	tagsID, err := r.LocalMapInsert(Root, "tags", CreateCRDTValue(KindSet))
	require.NoError(t, err)

	elemID, err := r.LocalSetInsert(tagsID, CreatePrimitiveValue(StringValue("urgent")))
	require.NoError(t, err)

	root, err := r.GetRoot()
	require.NoError(t, err)
	tags := root.Map["tags"]
	require.Equal(t, DBSet, tags.Kind)
	require.Len(t, tags.Set, 1)

	_, err = r.LocalSetDelete(tagsID, elemID)
	require.NoError(t, err)

	root, err = r.GetRoot()
	require.NoError(t, err)
	require.Len(t, root.Map["tags"].Set, 0)

	// Deleting an already-absent element is a legal no-op.
	_, err = r.LocalSetDelete(tagsID, elemID)
	require.NoError(t, err)
}
