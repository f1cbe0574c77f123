package crdt

import (
	"fmt"

	"github.com/causalgraph/crdtdb/causalgraph"
)

// DBValueKind enumerates the shapes a materialized query result may take.
type DBValueKind int

const (
	DBNull DBValueKind = iota
	DBPrimitive
	DBMap
	DBSet
)

// DBValue is a plain, conflict-resolved value tree: the output of Get, with
// every multi-value register already tie-broken down to a single winner.
type DBValue struct {
	Kind DBValueKind
	Prim Primitive
	Map  map[string]DBValue
	// Set is keyed by each element's identifying RawVersion, formatted as
	// "agent/seq" -- a plain string rather than the struct itself so a
	// DBValue serializes cleanly through encoding/json as well as CBOR.
	Set map[string]DBValue
}

// Get materializes the visible value rooted at crdtID (GetRoot covers RootLV).
// Register conflicts are resolved via the causal graph's TieBreakRegisters,
// which is a pure function of each pair's RawVersion -- never of local LV
// numbering -- so every replica that has integrated the same operations
// renders an identical tree.
func (r *Replica) Get(crdtID causalgraph.LV) (DBValue, error) {
	node, ok := r.model.getNode(crdtID)
	if !ok {
		return DBValue{Kind: DBNull}, nil
	}

	switch node.NodeKind {
	case KindRegister:
		val, err := r.tieBreak(node.Register.Pairs)
		if err != nil {
			return DBValue{}, err
		}
		return r.materialize(val)

	case KindMap:
		out := make(map[string]DBValue, len(node.Registers))
		for key, reg := range node.Registers {
			val, err := r.tieBreak(reg.Pairs)
			if err != nil {
				return DBValue{}, err
			}
			matVal, err := r.materialize(val)
			if err != nil {
				return DBValue{}, err
			}
			out[key] = matVal
		}
		return DBValue{Kind: DBMap, Map: out}, nil

	case KindSet:
		out := make(map[string]DBValue, len(node.Entries))
		for lv, val := range node.Entries {
			raw, ok := causalgraph.LVToRaw(&r.cg, lv)
			if !ok {
				return DBValue{}, unknownRawVersionErr(causalgraph.RawVersion{}, "set entry LV has no raw version")
			}
			matVal, err := r.materialize(val)
			if err != nil {
				return DBValue{}, err
			}
			out[fmt.Sprintf("%s/%d", raw.Agent, raw.Seq)] = matVal
		}
		return DBValue{Kind: DBSet, Set: out}, nil
	}

	return DBValue{Kind: DBNull}, nil
}

// GetRoot is a convenience for Get(RootLV).
func (r *Replica) GetRoot() (DBValue, error) {
	return r.Get(RootLV)
}

func (r *Replica) tieBreak(pairs []RegPair) (RegisterValue, error) {
	entries := make([]causalgraph.RegisterEntry[RegisterValue], len(pairs))
	for i, p := range pairs {
		entries[i] = causalgraph.RegisterEntry[RegisterValue]{Version: p.LV, Value: p.Value}
	}
	winner, err := causalgraph.TieBreakRegisters(&r.cg, entries)
	if err != nil {
		return RegisterValue{}, err
	}
	return winner.Value, nil
}

func (r *Replica) materialize(v RegisterValue) (DBValue, error) {
	if !v.IsCRDT {
		return DBValue{Kind: DBPrimitive, Prim: v.Prim}, nil
	}
	return r.Get(v.CRDTID)
}
