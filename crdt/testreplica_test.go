package crdt

import "github.com/causalgraph/crdtdb/causalgraph"

// newTestReplica builds a memory-only replica for agent, bypassing
// CreateDb's config/snapshot plumbing so tests can construct many cheaply.
func newTestReplica(agent string) *Replica {
	return &Replica{
		cg:      newCausalGraph(),
		model:   newValueModel(),
		logger:  newLogger("test", "error", false),
		metrics: defaultMetrics,
		agent:   causalgraph.AgentID(agent),
	}
}
