package crdt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/causalgraph/crdtdb/causalgraph"
)

// nodeRecord is the CBOR wire shape of a single value-model node, keyed by
// its LV so a snapshot can be decoded straight back into a nodeTable without
// a separate index.
type nodeRecord struct {
	LV   causalgraph.LV `cbor:"1,keyasint"`
	Node Node           `cbor:"2,keyasint"`
}

// snapshotBlob is the full on-disk representation of a replica: the causal
// graph state needed to keep assigning LVs and comparing versions, plus
// every live node in the value model. Deleted nodes are never encoded --
// reclamation is exactly what makes a snapshot smaller than its history.
type snapshotBlob struct {
	CG    causalgraph.CausalGraph `cbor:"1,keyasint"`
	Nodes []nodeRecord            `cbor:"2,keyasint"`
}

// canonicalEncMode encodes with CBOR's canonical options (map keys sorted), so
// a given value always encodes to the same bytes.
var canonicalEncMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("crdt: building canonical CBOR encoder: " + err.Error())
	}
	return em
}()

func encodeSnapshot(r *Replica) ([]byte, error) {
	blob := snapshotBlob{CG: r.cg}
	r.model.nodes.ascend(func(lv causalgraph.LV, n *Node) bool {
		blob.Nodes = append(blob.Nodes, nodeRecord{LV: lv, Node: *n})
		return true
	})
	data, err := canonicalEncMode.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("crdt: encoding snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (causalgraph.CausalGraph, *valueModel, error) {
	var blob snapshotBlob
	if err := cbor.Unmarshal(data, &blob); err != nil {
		return causalgraph.CausalGraph{}, nil, fmt.Errorf("crdt: decoding snapshot: %w", err)
	}
	model := &valueModel{nodes: newNodeTable()}
	for _, rec := range blob.Nodes {
		n := rec.Node
		model.putNode(rec.LV, &n)
	}
	return blob.CG, model, nil
}

// EncodeOperation and DecodeOperation serialize a single Operation for
// network transport or write-ahead logging.
func EncodeOperation(op Operation) ([]byte, error) {
	data, err := canonicalEncMode.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("crdt: encoding operation: %w", err)
	}
	return data, nil
}

func DecodeOperation(data []byte) (Operation, error) {
	var op Operation
	if err := cbor.Unmarshal(data, &op); err != nil {
		return Operation{}, fmt.Errorf("crdt: decoding operation: %w", err)
	}
	return op, nil
}
