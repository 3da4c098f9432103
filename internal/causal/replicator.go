package causal

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// ReplicateRequest is the wire payload for an outbound replication
// message: one per peer, built from a clock snapshot taken after the local
// tick so that vc[sender] equals the sequence number of this write at this
// sender.
type ReplicateRequest struct {
	Type        string      `json:"type"`
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	VectorClock VectorClock `json:"vector_clock"`
	SenderID    string      `json:"sender_id"`
}

// Transport is the thin collaborator the Replicator fans writes out
// through: an HTTP client in production, an in-memory fake in tests. The
// delivery engine never learns which one it is talking to.
type Transport interface {
	// SendReplicate delivers req to peerID. It should apply its own
	// bounded timeout; the replicator does not retry or escalate errors,
	// it only logs and drops them.
	SendReplicate(ctx context.Context, peerID string, req ReplicateRequest) error
}

// replicateTimeout bounds each outbound fan-out call.
const replicateTimeout = 2 * time.Second

// Replicator fans a local write out to every peer after Store and Clock
// have already been updated locally.
type Replicator struct {
	self      string
	peers     []string
	transport Transport
}

// NewReplicator creates a Replicator for self, fanning out to every ID in
// peerIDs (which must not include self).
func NewReplicator(self string, peerIDs []string, transport Transport) *Replicator {
	peers := make([]string, len(peerIDs))
	copy(peers, peerIDs)
	return &Replicator{self: self, peers: peers, transport: transport}
}

// Fanout sends one ReplicateRequest per peer, built from the clock
// snapshot taken after the local write that produced (key, value). It is
// best-effort: each peer call has its own timeout, and a failure is logged
// and dropped rather than propagated. Durability and retry belong to a
// higher layer that does not exist in this system.
//
// There is no ordering requirement across peers: each one independently
// reconstructs causal order from vector clocks, so the fan-out issues one
// goroutine per peer and does not serialize on any of them.
func (r *Replicator) Fanout(ctx context.Context, key, value string, vc VectorClock) {
	if len(r.peers) == 0 {
		return
	}

	req := ReplicateRequest{
		Type:        "replicate_put",
		Key:         key,
		Value:       value,
		VectorClock: vc,
		SenderID:    r.self,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, peerID := range r.peers {
		peerID := peerID
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, replicateTimeout)
			defer cancel()

			if err := r.transport.SendReplicate(callCtx, peerID, req); err != nil {
				// Logged and dropped: the peer is now behind on this key
				// until it is reachable again. There is no anti-entropy
				// layer to self-heal.
				log.Printf("causal: replicate %s to %s failed: %v", key, peerID, err)
			}
			return nil
		})
	}
	// Every goroutine above always returns nil — replication failures are
	// handled by logging, never by failing the group — so this only waits
	// for the fan-out to finish; it can't return an error.
	_ = g.Wait()
}
