package crdt

import (
	"github.com/tidwall/btree"

	"github.com/causalgraph/crdtdb/causalgraph"
)

// nodeTable is the value model's single mutable map from LV to CRDT node. It
// is backed by an ordered B-tree rather than a plain Go map so that snapshot
// encoding can walk nodes in ascending-LV order
// without a separate sort pass -- LVs are assigned densely and monotonically,
// so ascending order is also creation order.
type nodeTable struct {
	hint btree.PathHint
	tr   *btree.BTreeG[nodeEntry]
}

type nodeEntry struct {
	lv   causalgraph.LV
	node *Node
}

func newNodeTable() *nodeTable {
	tr := btree.NewBTreeGOptions(
		func(a, b nodeEntry) bool { return a.lv < b.lv },
		btree.Options{NoLocks: true, Degree: 32},
	)
	return &nodeTable{tr: tr}
}

func (t *nodeTable) get(lv causalgraph.LV) (*Node, bool) {
	var found *Node
	t.tr.AscendHint(nodeEntry{lv: lv}, func(e nodeEntry) bool {
		if e.lv == lv {
			found = e.node
		}
		return false
	}, &t.hint)
	return found, found != nil
}

func (t *nodeTable) put(lv causalgraph.LV, n *Node) {
	t.tr.SetHint(nodeEntry{lv: lv, node: n}, &t.hint)
}

func (t *nodeTable) delete(lv causalgraph.LV) {
	t.tr.DeleteHint(nodeEntry{lv: lv}, &t.hint)
}

func (t *nodeTable) len() int { return t.tr.Len() }

// ascend calls fn for every live node in ascending LV order, stopping early
// if fn returns false. Used by snapshot encoding, which wants a
// deterministic traversal order.
func (t *nodeTable) ascend(fn func(lv causalgraph.LV, n *Node) bool) {
	t.tr.AscendHint(nodeEntry{}, func(e nodeEntry) bool {
		return fn(e.lv, e.node)
	}, &t.hint)
}
