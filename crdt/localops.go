package crdt

import "github.com/causalgraph/crdtdb/causalgraph"

// buildLocalOp stamps action with a fresh RawVersion for this replica's
// agent and the replica's current global heads, then admits it the same way
// a remotely-received operation would be admitted. Every exported local-op
// helper below is a thin wrapper around this.
func (r *Replica) buildLocalOp(target causalgraph.RawVersion, action Action) (ApplyResult, causalgraph.RawVersion, error) {
	id := causalgraph.RawVersion{Agent: r.agent, Seq: r.nextSeq()}
	heads, err := r.Heads()
	if err != nil {
		return ApplyResult{}, id, err
	}
	op := Operation{
		ID:            id,
		GlobalParents: heads,
		CRDTID:        target,
		Action:        action,
	}
	result, err := r.ApplyRemoteOp(op)
	return result, id, err
}

// pairRawVersions translates a register's current pairs to the RawVersions
// identifying them, in the order a fresh write must supersede them.
func (r *Replica) pairRawVersions(pairs []RegPair) ([]causalgraph.RawVersion, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make([]causalgraph.RawVersion, len(pairs))
	for i, p := range pairs {
		raw, ok := causalgraph.LVToRaw(&r.cg, p.LV)
		if !ok {
			return nil, unknownRawVersionErr(causalgraph.RawVersion{}, "register pair LV has no raw version")
		}
		out[i] = raw
	}
	return out, nil
}

// currentRegisterParents returns the RawVersions of target's own current
// pairs, for a target that is itself a register node. A reclaimed or
// not-yet-a-register target yields no parents; ApplyRemoteOp will surface
// that as MissingTarget or InvalidTarget on its own.
func (r *Replica) currentRegisterParents(target causalgraph.RawVersion) ([]causalgraph.RawVersion, error) {
	targetLV, err := r.rawToLV(target)
	if err != nil {
		return nil, unknownRawVersionErr(target, err.Error())
	}
	node, ok := r.model.getNode(targetLV)
	if !ok || node.Register == nil {
		return nil, nil
	}
	return r.pairRawVersions(node.Register.Pairs)
}

// currentMapParents returns the RawVersions of the current pairs held at
// key within target, for a target that is itself a map node.
func (r *Replica) currentMapParents(target causalgraph.RawVersion, key string) ([]causalgraph.RawVersion, error) {
	targetLV, err := r.rawToLV(target)
	if err != nil {
		return nil, unknownRawVersionErr(target, err.Error())
	}
	node, ok := r.model.getNode(targetLV)
	if !ok {
		return nil, nil
	}
	reg, ok := node.Registers[key]
	if !ok {
		return nil, nil
	}
	return r.pairRawVersions(reg.Pairs)
}

// LocalRegisterSet overwrites a register node's value. localParents is
// computed from the register's own current pairs -- a local write has
// observed all of them, so it supersedes all of them, never a
// caller-chosen subset.
func (r *Replica) LocalRegisterSet(target causalgraph.RawVersion, val CreateValue) (causalgraph.RawVersion, error) {
	localParents, err := r.currentRegisterParents(target)
	if err != nil {
		return causalgraph.RawVersion{}, err
	}
	_, id, err := r.buildLocalOp(target, Action{
		Kind:         ActionRegisterSet,
		LocalParents: localParents,
		Val:          val,
	})
	return id, err
}

// LocalMapInsert sets a single key of a map node, superseding whatever pairs
// that key currently holds.
func (r *Replica) LocalMapInsert(target causalgraph.RawVersion, key string, val CreateValue) (causalgraph.RawVersion, error) {
	localParents, err := r.currentMapParents(target, key)
	if err != nil {
		return causalgraph.RawVersion{}, err
	}
	_, id, err := r.buildLocalOp(target, Action{
		Kind:         ActionMap,
		LocalParents: localParents,
		Key:          key,
		Val:          val,
	})
	return id, err
}

// LocalSetInsert adds a fresh element to a set node. The new element's own
// identity is the RawVersion this call returns, which is also what a later
// LocalSetDelete must pass as its target.
func (r *Replica) LocalSetInsert(target causalgraph.RawVersion, val CreateValue) (causalgraph.RawVersion, error) {
	_, id, err := r.buildLocalOp(target, Action{
		Kind: ActionSetInsert,
		Val:  val,
	})
	return id, err
}

// LocalSetDelete removes element (identified by the RawVersion LocalSetInsert
// returned for it) from a set node. Deleting an element that is already gone
// -- reclaimed locally or concurrently by another replica -- is a legal
// no-op, matching observed-remove semantics.
func (r *Replica) LocalSetDelete(target, element causalgraph.RawVersion) (causalgraph.RawVersion, error) {
	_, id, err := r.buildLocalOp(target, Action{
		Kind:   ActionSetDelete,
		Target: element,
	})
	return id, err
}
