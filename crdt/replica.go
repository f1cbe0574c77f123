package crdt

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/causalgraph/crdtdb/causalgraph"
)

// Replica is a single embedded database instance: a causal graph, the value
// model it drives, and the logger and metrics the merge engine reports
// through. A Replica is not safe for concurrent use -- callers that need
// concurrent access must serialize their own calls into it.
type Replica struct {
	cg      causalgraph.CausalGraph
	model   *valueModel
	logger  *zap.Logger
	metrics *replicaMetrics
	agent   causalgraph.AgentID
	store   *SnapshotStore
}

// CreateDb constructs a fresh, empty Replica from cfg. If cfg.SnapshotPath is
// set, the replica opens (and, if absent, creates) a badger store there and
// replays its most recent snapshot before returning.
func CreateDb(cfg Config) (*Replica, error) {
	r := &Replica{
		cg:      newCausalGraph(),
		model:   newValueModel(),
		logger:  newLogger("crdtdb", cfg.LogLevel, cfg.LogJSON),
		metrics: defaultMetrics,
		agent:   causalgraph.AgentID(cfg.Agent),
	}

	if cfg.SnapshotPath != "" {
		store, err := OpenSnapshotStore(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		r.store = store
		if err := r.loadLatestSnapshot(); err != nil {
			store.Close()
			return nil, err
		}
	}

	return r, nil
}

// Close releases the replica's snapshot store, if any. A memory-only replica
// (empty SnapshotPath) has nothing to close.
func (r *Replica) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// Agent returns the agent id this replica stamps on locally-originated
// operations.
func (r *Replica) Agent() causalgraph.AgentID {
	return r.agent
}

// Heads returns the current global version frontier as raw versions, suitable
// for embedding as an Operation's GlobalParents.
func (r *Replica) Heads() ([]causalgraph.RawVersion, error) {
	return causalgraph.LVToRawList(&r.cg, r.cg.Heads)
}

// nextSeq returns the next unused sequence number for this replica's own
// agent id, for building the RawVersion of a locally-originated operation.
func (r *Replica) nextSeq() int {
	return causalgraph.NextSeqForAgent(&r.cg, r.agent)
}

// HasStore reports whether this replica is backed by a snapshot store.
func (r *Replica) HasStore() bool {
	return r.store != nil
}

// Save persists the replica's current state to its snapshot store. It is an
// error to call Save on a memory-only replica.
func (r *Replica) Save() error {
	if r.store == nil {
		return fmt.Errorf("crdt: replica has no snapshot store")
	}
	return r.store.Save(r)
}
