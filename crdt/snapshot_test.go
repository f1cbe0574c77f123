package crdt

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSnapshotSaveLoad_RoundTripsGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")
	cfg := Config{Agent: "a", SnapshotPath: dir}

	r, err := CreateDb(cfg)
	require.NoError(t, err)

	profileID, err := r.LocalMapInsert(Root, "profile", CreateCRDTValue(KindMap))
	require.NoError(t, err)
	_, err = r.LocalMapInsert(profileID, "age", CreatePrimitiveValue(IntValue(30)))
	require.NoError(t, err)
	_, err = r.LocalMapInsert(Root, "tags", CreateCRDTValue(KindSet))
	require.NoError(t, err)

	want, err := r.GetRoot()
	require.NoError(t, err)

	require.NoError(t, r.Save())
	require.NoError(t, r.Close())

	reopened, err := CreateDb(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetRoot()
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot round trip changed Get() result (-want +got):\n%s", diff)
	}
}

func TestSnapshotSaveLoad_HeadsSurviveReload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")
	cfg := Config{Agent: "a", SnapshotPath: dir}

	r, err := CreateDb(cfg)
	require.NoError(t, err)
	_, err = r.LocalMapInsert(Root, "x", CreatePrimitiveValue(IntValue(1)))
	require.NoError(t, err)

	wantHeads, err := r.Heads()
	require.NoError(t, err)

	require.NoError(t, r.Save())
	require.NoError(t, r.Close())

	reopened, err := CreateDb(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	gotHeads, err := reopened.Heads()
	require.NoError(t, err)
	require.ElementsMatch(t, wantHeads, gotHeads)

	// A local write after reload must still supersede the reloaded pair
	// rather than clashing with it.
	_, err = reopened.LocalMapInsert(Root, "x", CreatePrimitiveValue(IntValue(2)))
	require.NoError(t, err)

	root, err := reopened.GetRoot()
	require.NoError(t, err)
	require.Equal(t, int64(2), root.Map["x"].Prim.Int)
}
