// Package causal implements the causal-delivery engine: the per-node vector
// clock, the happened-before ready check used to gate incoming replication
// messages, and the pending-message buffer with its re-scan delivery loop.
//
// Everything correctness-interesting in the store lives here. The package
// has no knowledge of HTTP, JSON, or peer addresses — those are the
// transport's job.
package causal

import "maps"

// VectorClock is a map: nodeID → logical counter. The domain is always the
// full, fixed cluster node set; a missing entry reads as 0.
//
// Example:
//
//	{"node1": 3, "node2": 1}
//
// means node1 has produced 3 events (local writes or receives) and node2
// has produced 1.
type VectorClock map[string]uint64

// NewVectorClock materializes a zeroed clock over every node in the
// cluster, so equality comparisons never have to treat a missing key
// specially.
func NewVectorClock(nodeIDs []string) VectorClock {
	vc := make(VectorClock, len(nodeIDs))
	for _, id := range nodeIDs {
		vc[id] = 0
	}
	return vc
}

// TickLocal increments this node's own component. Called for every local
// event: a client PUT, never a client GET (reads are not observable to
// other nodes, so ticking on read would pollute the clock without
// communicating anything).
func (vc VectorClock) TickLocal(self string) {
	vc[self]++
}

// MergeAndTick folds a received clock into vc — elementwise max — and then
// increments vc's own component to account for the receive event itself.
// This is the only place a remote node's counters ever flow into the local
// clock.
func (vc VectorClock) MergeAndTick(self string, received VectorClock) {
	for node, cnt := range received {
		if cnt > vc[node] {
			vc[node] = cnt
		}
	}
	vc[self]++
}

// Snapshot returns a deep copy of vc. Every clock handed outside the
// engine's lock — for replication, for /status — must go through Snapshot;
// aliasing the live clock would let it mutate underneath a concurrent
// reader.
func (vc VectorClock) Snapshot() VectorClock {
	c := make(VectorClock, len(vc))
	maps.Copy(c, vc)
	return c
}
