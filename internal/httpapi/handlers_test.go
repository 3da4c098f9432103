package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"causal-kv/internal/causal"
)

type noopTransport struct{}

func (noopTransport) SendReplicate(context.Context, string, causal.ReplicateRequest) error {
	return nil
}

func newTestHandler(self string) *Handler {
	engine := causal.New(self, []string{"n1", "n2", "n3"})
	replicator := causal.NewReplicator(self, []string{"n2", "n3"}, noopTransport{})
	return NewHandler(engine, replicator)
}

func TestPutAndGetRoundTrip(t *testing.T) {
	h := newTestHandler("n1")
	router := NewRouter(h)

	body, _ := json.Marshal(map[string]string{"key": "x", "value": "A"})
	req := httptest.NewRequest(http.MethodPost, "/put", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from PUT, got %d: %s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/get/x", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from GET, got %d", getRec.Code)
	}

	var resp struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(getRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Value != "A" {
		t.Fatalf("expected value A, got %q", resp.Value)
	}
}

func TestGetUnknownKeyReturns404(t *testing.T) {
	h := newTestHandler("n1")
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/get/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPutMissingFieldReturns400(t *testing.T) {
	h := newTestHandler("n1")
	router := NewRouter(h)

	body, _ := json.Marshal(map[string]string{"key": "x"}) // missing value
	req := httptest.NewRequest(http.MethodPost, "/put", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReplicateAppliedAndBuffered(t *testing.T) {
	h := newTestHandler("n3")
	router := NewRouter(h)

	ready := map[string]any{
		"type":         "replicate_put",
		"key":          "x",
		"value":        "A",
		"vector_clock": map[string]uint64{"n1": 1, "n2": 0, "n3": 0},
		"sender_id":    "n1",
	}
	body, _ := json.Marshal(ready)
	req := httptest.NewRequest(http.MethodPost, "/replicate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "applied" {
		t.Fatalf("expected status=applied, got %q", resp.Status)
	}

	notReady := map[string]any{
		"type":         "replicate_put",
		"key":          "y",
		"value":        "B",
		"vector_clock": map[string]uint64{"n1": 3, "n2": 0, "n3": 0},
		"sender_id":    "n1",
	}
	body2, _ := json.Marshal(notReady)
	req2 := httptest.NewRequest(http.MethodPost, "/replicate", bytes.NewReader(body2))
	req2.Header.Set("Content-Type", "application/json")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)

	var resp2 struct {
		Status string `json:"status"`
	}
	json.Unmarshal(rec2.Body.Bytes(), &resp2)
	if resp2.Status != "buffered" {
		t.Fatalf("expected status=buffered, got %q", resp2.Status)
	}
}

func TestReplicateMalformedReturns400(t *testing.T) {
	h := newTestHandler("n1")
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/replicate", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatusReportsNodeState(t *testing.T) {
	h := newTestHandler("n1")
	router := NewRouter(h)

	body, _ := json.Marshal(map[string]string{"key": "x", "value": "A"})
	putReq := httptest.NewRequest(http.MethodPost, "/put", bytes.NewReader(body))
	putReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), putReq)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp struct {
		NodeID                string            `json:"node_id"`
		KVStore               map[string]string `json:"kv_store"`
		BufferedMessagesCount int               `json:"buffered_messages_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if resp.NodeID != "n1" {
		t.Fatalf("expected node_id n1, got %q", resp.NodeID)
	}
	if resp.KVStore["x"] != "A" {
		t.Fatalf("expected kv_store to contain x=A, got %v", resp.KVStore)
	}
	if resp.BufferedMessagesCount != 0 {
		t.Fatalf("expected 0 buffered messages, got %d", resp.BufferedMessagesCount)
	}
}
