// Package client is a small Go SDK for talking to one node of the causal
// key-value store over HTTP, so callers don't have to hand-build requests
// and parse JSON themselves.
//
// A Client always talks to exactly one node. That node is responsible for
// fanning replication out to its peers; the client has no distributed
// logic of its own.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one node's HTTP surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. A zero timeout defaults to 10s — never call the
// network without one.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PutResponse is returned after a successful write.
type PutResponse struct {
	Key         string            `json:"key"`
	Value       string            `json:"value"`
	VectorClock map[string]uint64 `json:"vector_clock"`
}

// GetResponse is returned after a successful read.
type GetResponse struct {
	Value       string            `json:"value"`
	VectorClock map[string]uint64 `json:"vector_clock"`
}

// StatusResponse mirrors GET /status.
type StatusResponse struct {
	NodeID                string            `json:"node_id"`
	KVStore               map[string]string `json:"kv_store"`
	VectorClock           map[string]uint64 `json:"vector_clock"`
	BufferedMessagesCount int               `json:"buffered_messages_count"`
}

// Put stores key=value on this client's node.
func (c *Client) Put(ctx context.Context, key, value string) (*PutResponse, error) {
	body, _ := json.Marshal(map[string]string{"key": key, "value": value})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/put", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PUT request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result PutResponse
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// Get retrieves the value for key. A 404 response is converted to
// ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) (*GetResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/get/%s", c.baseURL, key), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result GetResponse
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// Status fetches the node's full observable state.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/status", c.baseURL), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result StatusResponse
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// ErrNotFound is returned when a key does not exist on the node.
var ErrNotFound = fmt.Errorf("key not found")

// APIError carries the HTTP status and message from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = string(body)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
