// Package crdt implements the merge engine, value model and query layer of
// a causal, multi-value CRDT database: a local replica that accepts
// operations (locally generated or delivered from a peer), merges them into
// a causally consistent state, and answers point queries for the current
// materialized value.
//
// The replicated data type is a recursive composition of three primitive
// CRDTs -- multi-value registers, maps of named registers, and
// observed-remove sets -- whose values may themselves be nested CRDTs,
// forming an ownership forest rooted at RootLV.
package crdt

import "github.com/causalgraph/crdtdb/causalgraph"

// RootLV is the reserved local version denoting the root map. It always
// identifies a live map node.
const RootLV causalgraph.LV = 0

// Root is the reserved RawVersion that maps to RootLV. No real operation may
// use it as its own id.
var Root = causalgraph.RawVersion{Agent: "ROOT", Seq: 0}

// newCausalGraph builds an empty causal graph with Root pre-registered as its
// very first entry. Without this, the graph's own LV counter would hand the
// first real operation LV 0 -- the same value RootLV reserves for the root
// node -- and that operation would collide with the root map in the node
// table the moment it tried to create a nested CRDT. Reserving LV 0 for Root
// up front keeps every real operation's LV strictly positive.
func newCausalGraph() causalgraph.CausalGraph {
	cg := causalgraph.CreateCG()
	if _, err := causalgraph.AddRaw(cg, Root, 1, []causalgraph.RawVersion{}); err != nil {
		panic("crdt: reserving root version on an empty causal graph: " + err.Error())
	}
	return *cg
}

// PrimitiveKind enumerates the fixed primitive domain a RegisterValue leaf
// may hold. Fixing this domain, rather than admitting an arbitrary host
// value, is what lets the CBOR wire codec round-trip a value deterministically
// across replicas.
type PrimitiveKind int

const (
	PrimNull PrimitiveKind = iota
	PrimBool
	PrimInt64
	PrimFloat64
	PrimString
)

// Primitive is a leaf value in the fixed primitive domain: null, bool,
// int64, float64 or string. Exactly one of the typed fields is meaningful,
// selected by Kind, following a tagged-struct idiom rather than reaching for
// `any`.
type Primitive struct {
	Kind PrimitiveKind
	Bool bool
	Int  int64
	Flt  float64
	Str  string
}

// NullValue, BoolValue, IntValue, FloatValue and StringValue construct a
// Primitive of the corresponding kind.
func NullValue() Primitive           { return Primitive{Kind: PrimNull} }
func BoolValue(b bool) Primitive     { return Primitive{Kind: PrimBool, Bool: b} }
func IntValue(i int64) Primitive     { return Primitive{Kind: PrimInt64, Int: i} }
func FloatValue(f float64) Primitive { return Primitive{Kind: PrimFloat64, Flt: f} }
func StringValue(s string) Primitive { return Primitive{Kind: PrimString, Str: s} }

// NodeKind enumerates the three CRDT node variants a node table entry may
// hold.
type NodeKind int

const (
	KindMap NodeKind = iota
	KindRegister
	KindSet
)

func (k NodeKind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindRegister:
		return "register"
	case KindSet:
		return "set"
	default:
		return "unknown"
	}
}

// RegisterValue is either an opaque primitive leaf or an owning reference to
// a nested CRDT node, identified by the LV of the operation that created it.
type RegisterValue struct {
	IsCRDT bool
	Prim   Primitive
	CRDTID causalgraph.LV
}

// PrimitiveRV and CRDTRV construct the two RegisterValue variants.
func PrimitiveRV(p Primitive) RegisterValue { return RegisterValue{Prim: p} }
func CRDTRV(id causalgraph.LV) RegisterValue {
	return RegisterValue{IsCRDT: true, CRDTID: id}
}

// RegPair is one surviving entry of a multi-value register: the LV of the
// write that produced it, and the value it carries.
type RegPair struct {
	LV    causalgraph.LV
	Value RegisterValue
}

// MVRegister is a non-empty, LV-ascending-sorted sequence of concurrently
// surviving writes. A freshly created register holds exactly one pair,
// primitive(null), at the creating operation's LV.
type MVRegister struct {
	Pairs []RegPair
}

// Node is one entry of the value model's node table. Exactly one of Registers
// (KindMap), Register (KindRegister) or Entries (KindSet) is populated,
// selected by NodeKind -- the same tagged-variant shape as RegisterValue above.
type Node struct {
	NodeKind NodeKind

	// KindMap: key -> register.
	Registers map[string]*MVRegister

	// KindRegister: the node's single register.
	Register *MVRegister

	// KindSet: insertion LV -> value. Deletions remove the entry outright,
	// which is what gives this an observed-remove set's semantics: a
	// concurrent re-insertion of "the same" logical element is a distinct
	// entry keyed by its own LV, never resurrected by an unrelated delete.
	Entries map[causalgraph.LV]RegisterValue
}

// CreateValueKind distinguishes the two things an operation may write into a
// register or insert into a set: an opaque primitive, or a request to create
// a fresh nested CRDT node of a given kind.
type CreateValueKind int

const (
	CreatePrimitive CreateValueKind = iota
	CreateCRDT
)

// CreateValue is the payload of a write: either a primitive to store
// directly, or a request to instantiate a new CRDT node of NodeKind.
type CreateValue struct {
	Kind     CreateValueKind
	Prim     Primitive
	NodeKind NodeKind
}

func CreatePrimitiveValue(p Primitive) CreateValue {
	return CreateValue{Kind: CreatePrimitive, Prim: p}
}

func CreateCRDTValue(kind NodeKind) CreateValue {
	return CreateValue{Kind: CreateCRDT, NodeKind: kind}
}

// ActionKind enumerates the four action shapes an Operation may carry.
type ActionKind int

const (
	ActionRegisterSet ActionKind = iota
	ActionMap
	ActionSetInsert
	ActionSetDelete
)

// Action is the effect an Operation applies to its target node. Exactly the
// fields relevant to Kind are meaningful.
type Action struct {
	Kind ActionKind

	// ActionRegisterSet, ActionMap
	LocalParents []causalgraph.RawVersion
	Val          CreateValue

	// ActionMap only
	Key string

	// ActionSetDelete only
	Target causalgraph.RawVersion
}

// Operation is the unit of replication: a single change, globally identified
// by (agent, seq), that targets one CRDT node.
type Operation struct {
	ID            causalgraph.RawVersion
	GlobalParents []causalgraph.RawVersion
	CRDTID        causalgraph.RawVersion
	Action        Action
}
