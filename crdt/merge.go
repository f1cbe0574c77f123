package crdt

import (
	"sort"

	"go.uber.org/zap"

	"github.com/causalgraph/crdtdb/causalgraph"
)

// ApplyOutcome distinguishes the three shapes applyRemoteOp's result can
// take: a normal mutation, an idempotent replay of an already-known
// operation, or an admitted-but-void application against a reclaimed target.
// The design notes recommend a distinct result variant over overloading a
// negative LV as a duplicate sentinel; this is that variant.
type ApplyOutcome int

const (
	Applied ApplyOutcome = iota
	Duplicate
	MissingTarget
)

func (o ApplyOutcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	case MissingTarget:
		return "missingTarget"
	default:
		return "unknown"
	}
}

// ApplyResult is the outcome of a single ApplyRemoteOp call.
type ApplyResult struct {
	LV      causalgraph.LV
	Outcome ApplyOutcome
}

// ApplyRemoteOp admits op to the causal graph and, unless it turns out to be
// a duplicate or its target has since been reclaimed, applies its effect to
// the value model. It is the sole entry point for both locally- and
// remotely-originated operations; LocalMapInsert and its siblings build an
// Operation and call straight through to this.
func (r *Replica) ApplyRemoteOp(op Operation) (ApplyResult, error) {
	if err := ValidateOperation(op); err != nil {
		return ApplyResult{}, err
	}

	rawParents := op.GlobalParents
	if rawParents == nil {
		// AddRaw treats a nil parent slice as "use the graph's current
		// heads". An operation that genuinely has no parents (the first
		// op from a fresh agent) must pass an explicit, non-nil empty
		// slice instead, or it would silently pick up unrelated parents.
		rawParents = []causalgraph.RawVersion{}
	}

	entry, err := causalgraph.AddRaw(&r.cg, op.ID, 1, rawParents)
	if err != nil {
		return ApplyResult{}, unknownRawVersionErr(op.ID, err.Error())
	}
	if entry == nil {
		r.metrics.duplicatesRejected.Inc()
		r.logger.Debug("duplicate operation ignored",
			zap.String("agent", string(op.ID.Agent)), zap.Int("seq", op.ID.Seq))
		return ApplyResult{Outcome: Duplicate}, nil
	}
	newLV := entry.Version

	targetLV, err := r.rawToLV(op.CRDTID)
	if err != nil {
		return ApplyResult{}, unknownRawVersionErr(op.ID, err.Error())
	}

	node, ok := r.model.getNode(targetLV)
	if !ok {
		r.metrics.missingTargets.Inc()
		r.logger.Info("operation targets a reclaimed node; admitted with no effect",
			zap.String("agent", string(op.ID.Agent)), zap.Int("seq", op.ID.Seq),
			zap.Int("targetLV", int(targetLV)))
		return ApplyResult{LV: newLV, Outcome: MissingTarget}, nil
	}

	if wantKind := wantKindFor(op.Action.Kind); wantKind != node.NodeKind {
		return ApplyResult{}, invalidTargetErr(op.ID, wantKind, node.NodeKind)
	}

	globalParentsLV, err := r.rawsToLVs(op.GlobalParents)
	if err != nil {
		return ApplyResult{}, unknownRawVersionErr(op.ID, err.Error())
	}

	switch op.Action.Kind {
	case ActionRegisterSet:
		localParentsLV, err := r.rawsToLVs(op.Action.LocalParents)
		if err != nil {
			return ApplyResult{}, unknownRawVersionErr(op.ID, err.Error())
		}
		newPairs, err := r.mergeRegister(op.ID, globalParentsLV, node.Register.Pairs, localParentsLV, newLV, op.Action.Val)
		if err != nil {
			return ApplyResult{}, err
		}
		node.Register.Pairs = newPairs

	case ActionMap:
		localParentsLV, err := r.rawsToLVs(op.Action.LocalParents)
		if err != nil {
			return ApplyResult{}, unknownRawVersionErr(op.ID, err.Error())
		}
		var oldPairs []RegPair
		if reg, ok := node.Registers[op.Action.Key]; ok {
			oldPairs = reg.Pairs
		}
		newPairs, err := r.mergeRegister(op.ID, globalParentsLV, oldPairs, localParentsLV, newLV, op.Action.Val)
		if err != nil {
			return ApplyResult{}, err
		}
		if node.Registers == nil {
			node.Registers = map[string]*MVRegister{}
		}
		node.Registers[op.Action.Key] = &MVRegister{Pairs: newPairs}

	case ActionSetInsert:
		var value RegisterValue
		if op.Action.Val.Kind == CreateCRDT {
			if _, err := r.model.createCRDT(op.ID, newLV, op.Action.Val.NodeKind); err != nil {
				return ApplyResult{}, err
			}
			value = CRDTRV(newLV)
		} else {
			value = PrimitiveRV(op.Action.Val.Prim)
		}
		if node.Entries == nil {
			node.Entries = map[causalgraph.LV]RegisterValue{}
		}
		node.Entries[newLV] = value

	case ActionSetDelete:
		targetEntryLV, err := r.rawToLV(op.Action.Target)
		if err != nil {
			return ApplyResult{}, unknownRawVersionErr(op.ID, err.Error())
		}
		if value, ok := node.Entries[targetEntryLV]; ok {
			r.model.removeRecursive(value)
			delete(node.Entries, targetEntryLV)
		}
		// Absent entry: already deleted, or deleted concurrently by another
		// replica. Observed-remove semantics make this a silent no-op.
	}

	r.metrics.opsApplied.Inc()
	r.metrics.liveNodes.Set(float64(r.model.liveNodeCount()))
	return ApplyResult{LV: newLV, Outcome: Applied}, nil
}

// mergeRegister is the register-merge primitive shared by registerSet and
// map actions. localParents is the set of pair LVs the author claims to
// supersede; every other retained pair must be concurrent with the whole
// operation's globalParents, or the operation is malformed.
func (r *Replica) mergeRegister(
	opID causalgraph.RawVersion,
	globalParents []causalgraph.LV,
	oldPairs []RegPair,
	localParents []causalgraph.LV,
	newLV causalgraph.LV,
	newVal CreateValue,
) ([]RegPair, error) {
	var newValue RegisterValue
	if newVal.Kind == CreateCRDT {
		if _, err := r.model.createCRDT(opID, newLV, newVal.NodeKind); err != nil {
			return nil, err
		}
		newValue = CRDTRV(newLV)
	} else {
		newValue = PrimitiveRV(newVal.Prim)
	}

	localParentSet := make(map[causalgraph.LV]struct{}, len(localParents))
	for _, p := range localParents {
		localParentSet[p] = struct{}{}
	}

	newPairs := make([]RegPair, 0, len(oldPairs)+1)
	newPairs = append(newPairs, RegPair{LV: newLV, Value: newValue})

	for _, pair := range oldPairs {
		if _, superseded := localParentSet[pair.LV]; superseded {
			r.model.removeRecursive(pair.Value)
			continue
		}
		dominated, err := causalgraph.VersionContainsLV(&r.cg, globalParents, pair.LV)
		if err != nil {
			return nil, unknownRawVersionErr(opID, err.Error())
		}
		if dominated {
			return nil, invalidParentsErr(opID, pair.LV)
		}
		newPairs = append(newPairs, pair)
	}

	sort.Slice(newPairs, func(i, j int) bool { return newPairs[i].LV < newPairs[j].LV })
	return newPairs, nil
}

func wantKindFor(action ActionKind) NodeKind {
	switch action {
	case ActionRegisterSet:
		return KindRegister
	case ActionMap:
		return KindMap
	default:
		return KindSet
	}
}

// rawToLV translates a single RawVersion to its LV, answering Root with
// RootLV directly; newCausalGraph admits Root as the graph's first entry, so
// causalgraph.RawToLV would give the same LV.
func (r *Replica) rawToLV(raw causalgraph.RawVersion) (causalgraph.LV, error) {
	if raw == Root {
		return RootLV, nil
	}
	return causalgraph.RawToLV(&r.cg, raw.Agent, raw.Seq)
}

func (r *Replica) rawsToLVs(raws []causalgraph.RawVersion) ([]causalgraph.LV, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	lvs := make([]causalgraph.LV, len(raws))
	for i, raw := range raws {
		lv, err := r.rawToLV(raw)
		if err != nil {
			return nil, err
		}
		lvs[i] = lv
	}
	return lvs, nil
}
