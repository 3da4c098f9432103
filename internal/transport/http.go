// Package transport implements the HTTP collaborator that moves
// replication payloads between nodes. It is interchangeable plumbing: any
// request/response transport with at-least-once-ish delivery would do, and
// the causal engine only ever talks to it through the causal.Transport
// interface.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"causal-kv/internal/causal"
)

// HTTPTransport sends replication payloads to peers over HTTP POST
// /replicate.
type HTTPTransport struct {
	client    *http.Client
	addresses map[string]string // nodeID -> base URL, e.g. "http://host:port"
}

// NewHTTPTransport builds a transport over the cluster map. The map is
// never mutated after construction: there is no membership change in this
// system.
func NewHTTPTransport(addresses map[string]string) *HTTPTransport {
	cp := make(map[string]string, len(addresses))
	for k, v := range addresses {
		cp[k] = v
	}
	return &HTTPTransport{
		client:    &http.Client{Timeout: 5 * time.Second},
		addresses: cp,
	}
}

// SendReplicate implements causal.Transport.
func (t *HTTPTransport) SendReplicate(ctx context.Context, peerID string, req causal.ReplicateRequest) error {
	base, ok := t.addresses[peerID]
	if !ok {
		return fmt.Errorf("transport: unknown peer %q", peerID)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal replicate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/replicate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer %s returned HTTP %d", peerID, resp.StatusCode)
	}
	return nil
}
