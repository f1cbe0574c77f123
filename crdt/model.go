package crdt

import "github.com/causalgraph/crdtdb/causalgraph"

// valueModel is the in-memory representation of every live CRDT node and the
// register entries that reference them. At construction it holds exactly one
// node: RootLV, an empty map. All mutation happens through the merge engine;
// concurrent external mutation is not supported -- a valueModel, like the
// replica that owns it, is single-threaded and synchronous.
type valueModel struct {
	nodes *nodeTable
}

func newValueModel() *valueModel {
	m := &valueModel{nodes: newNodeTable()}
	m.putNode(RootLV, &Node{NodeKind: KindMap, Registers: map[string]*MVRegister{}})
	return m
}

func (m *valueModel) getNode(id causalgraph.LV) (*Node, bool) {
	return m.nodes.get(id)
}

func (m *valueModel) putNode(id causalgraph.LV, n *Node) {
	m.nodes.put(id, n)
}

func (m *valueModel) deleteNode(id causalgraph.LV) {
	m.nodes.delete(id)
}

func (m *valueModel) liveNodeCount() int {
	return m.nodes.len()
}

// createCRDT inserts a fresh, empty node of the given kind at id. id must not
// already be present in the table -- the merge engine only ever calls this
// with id equal to the LV of the operation creating the node, and LVs are
// never reused, so a collision here is a programmer bug, not a data
// condition.
//
// The freshly created node's id doubles as a set's entry key when the node is
// inserted into a set (createValue == crdt(kind) via setInsert): the node
// table and a set's entry map share the same LV key space by construction,
// so no separate id space is needed for the two roles.
func (m *valueModel) createCRDT(op causalgraph.RawVersion, id causalgraph.LV, kind NodeKind) (*Node, error) {
	if _, exists := m.getNode(id); exists {
		return nil, duplicateNodeErr(op, id)
	}
	var n *Node
	switch kind {
	case KindMap:
		n = &Node{NodeKind: KindMap, Registers: map[string]*MVRegister{}}
	case KindSet:
		n = &Node{NodeKind: KindSet, Entries: map[causalgraph.LV]RegisterValue{}}
	case KindRegister:
		n = &Node{NodeKind: KindRegister, Register: &MVRegister{
			Pairs: []RegPair{{LV: id, Value: PrimitiveRV(NullValue())}},
		}}
	}
	m.putNode(id, n)
	return n, nil
}

// removeRecursive reclaims value and, if it owns a nested CRDT node, every
// node transitively reachable from it. This is the only legal path to node
// destruction: invariants that live nodes form a cycle-free forest rooted at
// RootLV, and that every crdt(id) reference resolves to a live node, both
// depend on removeRecursive running to completion whenever a register pair
// or set entry that owned a subtree is dropped.
//
// It is a no-op on a primitive value, and a no-op if the owned node is
// already absent from the node table.
func (m *valueModel) removeRecursive(value RegisterValue) {
	if !value.IsCRDT {
		return
	}
	n, ok := m.getNode(value.CRDTID)
	if !ok {
		return
	}
	switch n.NodeKind {
	case KindMap:
		for _, reg := range n.Registers {
			for _, p := range reg.Pairs {
				m.removeRecursive(p.Value)
			}
		}
	case KindRegister:
		for _, p := range n.Register.Pairs {
			m.removeRecursive(p.Value)
		}
	case KindSet:
		for _, v := range n.Entries {
			m.removeRecursive(v)
		}
	}
	m.deleteNode(value.CRDTID)
}
