package causal

import "sync"

// pending is a buffered replication message: the sender, the write itself,
// and the sender's vector clock at the moment of replication. The buffer is
// unordered — a plain slice, swept front-to-back on every re-scan; nothing
// about correctness depends on its order.
type pending struct {
	senderID string
	key      string
	value    string
	vc       VectorClock
}

// DeliveryResult reports what happened to an inbound replication message.
type DeliveryResult int

const (
	// Applied means the message was causally ready and has been written to
	// the store.
	Applied DeliveryResult = iota
	// Buffered means the message is not yet causally ready and is waiting
	// on the pending buffer for a dependency to arrive.
	Buffered
	// Discarded means the message was a duplicate or obsolete replay of an
	// already-applied write and was dropped without being buffered or
	// applied.
	Discarded
)

// Engine is the single lock-guarded owner of Store, Clock, and the pending
// buffer for one node. Every public method that touches any of the three
// takes the same mutex: "store and clock advance as one event" is an
// invariant only a shared lock can enforce, so the state lives in one
// object rather than three independently-locked containers.
type Engine struct {
	mu sync.Mutex

	self  string
	clock VectorClock
	store *store
	buf   []pending
}

// New creates the engine for node self, with a vector clock zeroed over
// every node in the cluster (self included).
func New(self string, nodeIDs []string) *Engine {
	return &Engine{
		self:  self,
		clock: NewVectorClock(nodeIDs),
		store: newStore(),
	}
}

// Put is the local-write path for a client PUT:
//
//  1. Atomically tick the local clock and write to the store.
//  2. Snapshot the clock for the caller to hand to the replicator.
//
// Step 1's atomicity is what guarantees every write this node advertises
// has a strictly greater self-component than any write it has previously
// advertised.
func (e *Engine) Put(key, value string) VectorClock {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clock.TickLocal(e.self)
	e.store.put(key, value)
	return e.clock.Snapshot()
}

// Get is the local-read path for a client GET. It returns the current
// value (or ok=false if absent) together with a snapshot of the current
// clock, for optional client-side causality tracking.
//
// Get does not tick the clock: a read is not observable to any other node,
// so ticking here would advance VC[self] without the receiver ever being
// told why.
func (e *Engine) Get(key string) (value string, ok bool, vc VectorClock) {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, ok = e.store.get(key)
	return value, ok, e.clock.Snapshot()
}

// Deliver feeds an inbound replication message into the delivery engine.
// It applies the message immediately if causally ready,
// buffers it if not, or discards it if it is a duplicate/obsolete replay
// of an already-applied write.
func (e *Engine) Deliver(senderID, key, value string, vc VectorClock) DeliveryResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg := pending{senderID: senderID, key: key, value: value, vc: vc}

	if vc[senderID] <= e.clock[senderID] {
		// Already delivered (or older). Feeding this to the ready check
		// would buffer it forever, since it can never equal
		// local[sender]+1 again, so it is discarded up front.
		return Discarded
	}

	if e.ready(msg) {
		e.applyLocked(msg)
		e.rescanLocked()
		return Applied
	}

	e.buf = append(e.buf, msg)
	return Buffered
}

// ready reports whether msg is causally ready to deliver:
//
//  1. msg.vc[msg.senderID] == local[msg.senderID] + 1 — the sender's own
//     component is the next one we expect from it (catches both
//     duplicates and gaps).
//  2. For every other node j ≠ sender: msg.vc[j] <= local[j] — every
//     causal dependency the sender had already observed must already be
//     locally observed too.
//
// Both conditions must hold for the message to be causally ready.
func (e *Engine) ready(msg pending) bool {
	if msg.vc[msg.senderID] != e.clock[msg.senderID]+1 {
		return false
	}
	for node, cnt := range msg.vc {
		if node == msg.senderID {
			continue
		}
		if cnt > e.clock[node] {
			return false
		}
	}
	return true
}

// applyLocked writes a ready message to the store and merges its clock in.
// Must be called with mu held.
func (e *Engine) applyLocked(msg pending) {
	e.store.put(msg.key, msg.value)
	e.clock.MergeAndTick(e.self, msg.vc)
}

// rescanLocked re-evaluates the buffer until a full pass delivers nothing
// new. Applying one message can advance the
// clock enough to unlock another, so the scan repeats rather than running
// once; each delivery strictly shrinks the buffer and strictly advances
// VC[sender], so the fixed point is reached in a bounded number of rounds.
// Must be called with mu held.
func (e *Engine) rescanLocked() {
	for {
		delivered := false
		remaining := e.buf[:0:0]
		for _, msg := range e.buf {
			if e.ready(msg) {
				e.applyLocked(msg)
				delivered = true
			} else {
				remaining = append(remaining, msg)
			}
		}
		e.buf = remaining
		if !delivered {
			return
		}
	}
}

// Status reports the node's full observable state, for the /status
// endpoint and for tests.
func (e *Engine) Status() (nodeID string, kv map[string]string, vc VectorClock, bufferedCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.self, e.store.snapshot(), e.clock.Snapshot(), len(e.buf)
}
