package crdt

import "github.com/causalgraph/crdtdb/causalgraph"

// VersionSummary returns a per-agent summary of every version this replica
// has admitted, suitable for shipping to a peer so it can compute what it is
// missing relative to this replica. Each version appears as its own
// [seq, seq+1) range; adjacent sequence numbers are not merged.
func (r *Replica) VersionSummary() (causalgraph.VersionSummary, error) {
	return causalgraph.SummarizeVersion(&r.cg, r.cg.Heads)
}

// MissingFrom reports the local version ranges this replica has admitted that
// peerSummary does not cover: the operations a caller would need to ship to
// bring that peer up to date with this replica's current heads.
func (r *Replica) MissingFrom(peerSummary causalgraph.VersionSummary) ([]causalgraph.LVRange, error) {
	return causalgraph.Diff(&r.cg, r.cg.Heads, peerSummary)
}

// Relation reports how a and b relate in this replica's causal graph: equal,
// one an ancestor of the other, or concurrent.
func (r *Replica) Relation(a, b causalgraph.RawVersion) (causalgraph.Relation, error) {
	aLV, err := r.rawToLV(a)
	if err != nil {
		return "", unknownRawVersionErr(a, err.Error())
	}
	bLV, err := r.rawToLV(b)
	if err != nil {
		return "", unknownRawVersionErr(b, err.Error())
	}
	return causalgraph.CompareVersions(&r.cg, aLV, bLV)
}

// RelateToHeads reports how v relates to each of this replica's current
// heads, keyed by the head's own RawVersion. This is what a "have you seen
// this version" query against a live replica answers.
func (r *Replica) RelateToHeads(v causalgraph.RawVersion) (map[causalgraph.RawVersion]causalgraph.Relation, error) {
	heads, err := r.Heads()
	if err != nil {
		return nil, err
	}
	out := make(map[causalgraph.RawVersion]causalgraph.Relation, len(heads))
	for _, h := range heads {
		rel, err := r.Relation(v, h)
		if err != nil {
			return nil, err
		}
		out[h] = rel
	}
	return out, nil
}

// CommonAncestors returns the dominator frontier of versions: the most
// recent versions that are ancestors of, or equal to, all of them.
func (r *Replica) CommonAncestors(versions []causalgraph.RawVersion) ([]causalgraph.RawVersion, error) {
	lvs, err := r.rawsToLVs(versions)
	if err != nil {
		return nil, err
	}
	dominators, err := causalgraph.FindDominators(&r.cg, lvs)
	if err != nil {
		return nil, err
	}
	return causalgraph.LVToRawList(&r.cg, dominators)
}

// Conflicting returns the local version ranges of the operations in the
// history of versions that are not in the history of commonAncestors: the
// concurrent operations a three-way merge would need to inspect. Ranges that
// touch in LV order come back merged into one.
func (r *Replica) Conflicting(versions, commonAncestors []causalgraph.RawVersion) ([]causalgraph.LVRange, error) {
	vLVs, err := r.rawsToLVs(versions)
	if err != nil {
		return nil, err
	}
	caLVs, err := r.rawsToLVs(commonAncestors)
	if err != nil {
		return nil, err
	}
	return causalgraph.FindConflicting(&r.cg, vLVs, caLVs)
}

// History calls visit once for every version strictly after from and up to
// and including to, in the causal graph's own traversal order (to first,
// then back through its parents). It stops early if visit returns stop=true.
func (r *Replica) History(from []causalgraph.RawVersion, to causalgraph.RawVersion, visit func(v causalgraph.RawVersion, isMerge bool) (stop bool, err error)) error {
	fromLVs, err := r.rawsToLVs(from)
	if err != nil {
		return err
	}
	toLV, err := r.rawToLV(to)
	if err != nil {
		return unknownRawVersionErr(to, err.Error())
	}
	return causalgraph.IterVersionsBetween(&r.cg, fromLVs, toLV, func(v causalgraph.LV, isParentOfPrev, isMerge bool) (bool, error) {
		raw, ok := causalgraph.LVToRaw(&r.cg, v)
		if !ok {
			return true, unknownRawVersionErr(causalgraph.RawVersion{}, "history LV has no raw version")
		}
		return visit(raw, isMerge)
	})
}

// RangeToRaw renders an LVRange as the RawVersion of its start plus its
// length, for callers that want to report ranges without walking every LV.
func (r *Replica) RangeToRaw(rng causalgraph.LVRange) (causalgraph.RawVersion, int, error) {
	raw, ok := causalgraph.LVToRaw(&r.cg, rng.Start)
	if !ok {
		return causalgraph.RawVersion{}, 0, unknownRawVersionErr(causalgraph.RawVersion{}, "range start LV has no raw version")
	}
	return raw, int(rng.End - rng.Start), nil
}
