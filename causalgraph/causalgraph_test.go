package causalgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateCG(t *testing.T) {
	cg := CreateCG()
	require.Empty(t, cg.Heads)
	require.Empty(t, cg.Entries)
	require.Zero(t, cg.NextLV)
}

func TestAddRaw_RootThenChild(t *testing.T) {
	cg := CreateCG()

	root := RawVersion{Agent: "a", Seq: 0}
	entry, err := AddRaw(cg, root, 1, []RawVersion{})
	require.NoError(t, err)
	require.Equal(t, LV(0), entry.Version)
	require.Equal(t, []LV{0}, cg.Heads)

	child := RawVersion{Agent: "b", Seq: 0}
	_, err = AddRaw(cg, child, 1, []RawVersion{root})
	require.NoError(t, err)
	require.Equal(t, []LV{1}, cg.Heads, "child's arrival should retire root from the frontier")

	seq := NextSeqForAgent(cg, "a")
	require.Equal(t, 1, seq)
	seq = NextSeqForAgent(cg, "unknown-agent")
	require.Equal(t, 0, seq)
}

func TestAddRaw_DuplicateIsANoop(t *testing.T) {
	cg := CreateCG()
	id := RawVersion{Agent: "a", Seq: 0}
	_, err := AddRaw(cg, id, 1, []RawVersion{})
	require.NoError(t, err)

	entry, err := AddRaw(cg, id, 1, []RawVersion{})
	require.NoError(t, err)
	require.Nil(t, entry)
	require.Equal(t, LV(1), cg.NextLV, "a duplicate submission must not advance the LV counter")
}

func TestAddRaw_UnknownParentRejected(t *testing.T) {
	cg := CreateCG()
	ghost := RawVersion{Agent: "a", Seq: 5}
	_, err := AddRaw(cg, RawVersion{Agent: "b", Seq: 0}, 1, []RawVersion{ghost})
	require.Error(t, err)
}

func TestRawToLVAndLVToRaw_RoundTrip(t *testing.T) {
	cg := CreateCG()
	id := RawVersion{Agent: "a", Seq: 0}
	_, err := AddRaw(cg, id, 3, []RawVersion{})
	require.NoError(t, err)

	lv, err := RawToLV(cg, "a", 1)
	require.NoError(t, err)
	require.Equal(t, LV(1), lv)

	raw, ok := LVToRaw(cg, lv)
	require.True(t, ok)
	require.Equal(t, RawVersion{Agent: "a", Seq: 1}, raw)

	_, ok = LVToRaw(cg, 99)
	require.False(t, ok)

	_, err = RawToLV(cg, "a", 99)
	require.Error(t, err)
}

func TestLVToRawList(t *testing.T) {
	cg := CreateCG()
	_, err := AddRaw(cg, RawVersion{Agent: "a", Seq: 0}, 2, []RawVersion{})
	require.NoError(t, err)

	raws, err := LVToRawList(cg, []LV{0, 1})
	require.NoError(t, err)
	require.Equal(t, []RawVersion{{Agent: "a", Seq: 0}, {Agent: "a", Seq: 1}}, raws)

	_, err = LVToRawList(cg, []LV{0, 5})
	require.Error(t, err)

	raws, err = LVToRawList(cg, nil)
	require.NoError(t, err)
	require.Nil(t, raws)
}

func TestVersionContainsLV(t *testing.T) {
	cg := CreateCG()
	root := RawVersion{Agent: "a", Seq: 0}
	_, err := AddRaw(cg, root, 1, []RawVersion{})
	require.NoError(t, err)
	_, err = AddRaw(cg, RawVersion{Agent: "b", Seq: 0}, 1, []RawVersion{root})
	require.NoError(t, err)
	// Concurrent branch that never observed b/0.
	_, err = AddRaw(cg, RawVersion{Agent: "c", Seq: 0}, 1, []RawVersion{root})
	require.NoError(t, err)

	contains, err := VersionContainsLV(cg, []LV{1}, 0)
	require.NoError(t, err)
	require.True(t, contains, "b's write descends from root")

	contains, err = VersionContainsLV(cg, []LV{1}, 2)
	require.NoError(t, err)
	require.False(t, contains, "b's write is concurrent with c's")

	contains, err = VersionContainsLV(cg, []LV{1}, 1)
	require.NoError(t, err)
	require.True(t, contains, "a frontier trivially contains itself")
}

func TestSummarizeVersionAndDiff(t *testing.T) {
	cg := CreateCG()
	root := RawVersion{Agent: "a", Seq: 0}
	_, err := AddRaw(cg, root, 1, []RawVersion{})
	require.NoError(t, err)
	b := RawVersion{Agent: "b", Seq: 0}
	_, err = AddRaw(cg, b, 1, []RawVersion{root})
	require.NoError(t, err)

	summary, err := SummarizeVersion(cg, cg.Heads)
	require.NoError(t, err)
	require.Equal(t, VersionSummary{
		"a": {{0, 1}},
		"b": {{0, 1}},
	}, summary)

	// A peer that has only seen root is missing b's write.
	peer := VersionSummary{"a": {{0, 1}}}
	missing, err := Diff(cg, cg.Heads, peer)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.Equal(t, LV(1), missing[0].Start)
	require.Equal(t, LV(2), missing[0].End)

	// A peer that has seen everything is missing nothing.
	upToDate, err := Diff(cg, cg.Heads, summary)
	require.NoError(t, err)
	require.Empty(t, upToDate)
}

func TestFindDominatorsAndFindConflicting(t *testing.T) {
	cg := CreateCG()
	root := RawVersion{Agent: "a", Seq: 0}
	_, err := AddRaw(cg, root, 1, []RawVersion{})
	require.NoError(t, err)

	b := RawVersion{Agent: "b", Seq: 0}
	_, err = AddRaw(cg, b, 1, []RawVersion{root})
	require.NoError(t, err)

	c := RawVersion{Agent: "c", Seq: 0}
	_, err = AddRaw(cg, c, 1, []RawVersion{root})
	require.NoError(t, err)

	bLV, err := RawToLV(cg, "b", 0)
	require.NoError(t, err)
	cLV, err := RawToLV(cg, "c", 0)
	require.NoError(t, err)
	rootLV, err := RawToLV(cg, "a", 0)
	require.NoError(t, err)

	dominators, err := FindDominators(cg, []LV{bLV, cLV})
	require.NoError(t, err)
	require.Equal(t, []LV{rootLV}, dominators, "root is the only common ancestor not itself dominated by another")

	conflicts, err := FindConflicting(cg, []LV{bLV, cLV}, dominators)
	require.NoError(t, err)
	// b and c occupy adjacent LVs, so Diff's range merge folds their two
	// single-op runs into one contiguous LVRange.
	require.Equal(t, []LVRange{{Start: bLV, End: cLV + 1}}, conflicts)
}

func TestCompareVersions(t *testing.T) {
	cg := CreateCG()
	root := RawVersion{Agent: "a", Seq: 0}
	_, err := AddRaw(cg, root, 1, []RawVersion{})
	require.NoError(t, err)
	_, err = AddRaw(cg, RawVersion{Agent: "b", Seq: 0}, 1, []RawVersion{root})
	require.NoError(t, err)
	_, err = AddRaw(cg, RawVersion{Agent: "c", Seq: 0}, 1, []RawVersion{root})
	require.NoError(t, err)

	rel, err := CompareVersions(cg, 0, 0)
	require.NoError(t, err)
	require.Equal(t, RelationEqual, rel)

	rel, err = CompareVersions(cg, 0, 1)
	require.NoError(t, err)
	require.Equal(t, RelationAncestor, rel)

	rel, err = CompareVersions(cg, 1, 0)
	require.NoError(t, err)
	require.Equal(t, RelationDescendant, rel)

	rel, err = CompareVersions(cg, 1, 2)
	require.NoError(t, err)
	require.Equal(t, RelationConcurrent, rel)
}

func TestIterVersionsBetween_WalksBackToRoot(t *testing.T) {
	cg := CreateCG()
	root := RawVersion{Agent: "a", Seq: 0}
	_, err := AddRaw(cg, root, 1, []RawVersion{})
	require.NoError(t, err)
	_, err = AddRaw(cg, RawVersion{Agent: "b", Seq: 0}, 1, []RawVersion{root})
	require.NoError(t, err)

	var visited []LV
	err = IterVersionsBetween(cg, nil, 1, func(v LV, isParentOfPrev, isMerge bool) (bool, error) {
		visited = append(visited, v)
		return false, nil
	})
	require.NoError(t, err)
	require.Equal(t, []LV{1, 0}, visited, "traversal starts at 'to' and walks backward through parents")
}

func TestIterVersionsBetween_StopsWhenFromReachesTo(t *testing.T) {
	cg := CreateCG()
	root := RawVersion{Agent: "a", Seq: 0}
	_, err := AddRaw(cg, root, 1, []RawVersion{})
	require.NoError(t, err)

	var visited []LV
	err = IterVersionsBetween(cg, []LV{0}, 0, func(v LV, isParentOfPrev, isMerge bool) (bool, error) {
		visited = append(visited, v)
		return false, nil
	})
	require.NoError(t, err)
	require.Empty(t, visited, "the range (from, to] is empty when from already reaches to")
}
