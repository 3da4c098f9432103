// Package httpapi wires the node's HTTP surface onto the causal delivery
// engine. It is deliberately thin: every handler's job is to translate a
// request into one engine call and a response into one engine result,
// nothing more.
package httpapi

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"causal-kv/internal/causal"
)

// Handler holds the dependencies injected from main: the engine for this
// node and the replicator that fans local writes out to peers.
type Handler struct {
	engine     *causal.Engine
	replicator *causal.Replicator
}

// NewHandler creates a Handler for one node.
func NewHandler(engine *causal.Engine, replicator *causal.Replicator) *Handler {
	return &Handler{engine: engine, replicator: replicator}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/put", h.Put)
	r.POST("/replicate", h.Replicate)
	r.GET("/get/:key", h.Get)
	r.GET("/status", h.Status)
}

// putRequest is the body of POST /put.
type putRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// Put handles POST /put: a local write followed by asynchronous fan-out to
// every peer. The HTTP response does not wait on replication.
func (h *Handler) Put(c *gin.Context) {
	var body putRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vc := h.engine.Put(body.Key, body.Value)

	go h.replicator.Fanout(context.Background(), body.Key, body.Value, vc)

	c.JSON(http.StatusOK, gin.H{
		"key":          body.Key,
		"value":        body.Value,
		"vector_clock": vc,
	})
}

// replicateRequest is the body of POST /replicate, matching the fan-out
// payload peers send.
type replicateRequest struct {
	Type        string             `json:"type" binding:"required"`
	Key         string             `json:"key" binding:"required"`
	Value       string             `json:"value"`
	VectorClock causal.VectorClock `json:"vector_clock" binding:"required"`
	SenderID    string             `json:"sender_id" binding:"required"`
}

// Replicate handles POST /replicate: feeds the payload into the delivery
// engine and reports whether it was applied, buffered, or discarded. None
// of the three is an error, so all return 200; 400 is reserved for
// malformed payloads.
func (h *Handler) Replicate(c *gin.Context) {
	var body replicateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Type != "replicate_put" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown message type"})
		return
	}

	result := h.engine.Deliver(body.SenderID, body.Key, body.Value, body.VectorClock)

	status := "applied"
	switch result {
	case causal.Buffered:
		status = "buffered"
	case causal.Discarded:
		status = "discarded"
	}
	log.Printf("replicate from %s: key=%s %s", body.SenderID, body.Key, status)
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// Get handles GET /get/:key.
func (h *Handler) Get(c *gin.Context) {
	key := c.Param("key")

	value, ok, vc := h.engine.Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "absent"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"value":        value,
		"vector_clock": vc,
	})
}

// Status handles GET /status: node_id, kv_store, vector_clock, and
// buffered_messages_count, for tests and debugging.
func (h *Handler) Status(c *gin.Context) {
	nodeID, kv, vc, buffered := h.engine.Status()

	c.JSON(http.StatusOK, gin.H{
		"node_id":                 nodeID,
		"kv_store":                kv,
		"vector_clock":            vc,
		"buffered_messages_count": buffered,
	})
}
