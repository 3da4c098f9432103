// kvnode is the process entry-point for one node of the causal key-value
// store: one process per node.
//
// Usage:
//
//	kvnode <node_id> <port> <cluster_map_json>
//
// cluster_map_json maps every node ID in the cluster (self included) to its
// base URL, e.g.:
//
//	kvnode node1 8001 '{"node1":"http://localhost:8001","node2":"http://localhost:8002","node3":"http://localhost:8003"}'
//
// The map is immutable for the lifetime of the process: there is no
// membership change in this system.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"causal-kv/internal/causal"
	"causal-kv/internal/httpapi"
	"causal-kv/internal/transport"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: kvnode <node_id> <port> <cluster_map_json>")
		os.Exit(1)
	}

	nodeID := os.Args[1]
	port := os.Args[2]
	clusterMapJSON := os.Args[3]

	var clusterMap map[string]string
	if err := json.Unmarshal([]byte(clusterMapJSON), &clusterMap); err != nil {
		log.Fatalf("invalid cluster_map_json: %v", err)
	}
	if _, ok := clusterMap[nodeID]; !ok {
		log.Fatalf("cluster_map_json does not contain this node's id %q", nodeID)
	}

	nodeIDs := make([]string, 0, len(clusterMap))
	peerIDs := make([]string, 0, len(clusterMap)-1)
	for id := range clusterMap {
		nodeIDs = append(nodeIDs, id)
		if id != nodeID {
			peerIDs = append(peerIDs, id)
		}
	}

	engine := causal.New(nodeID, nodeIDs)
	httpTransport := transport.NewHTTPTransport(clusterMap)
	replicator := causal.NewReplicator(nodeID, peerIDs, httpTransport)

	handler := httpapi.NewHandler(engine, replicator)
	router := httpapi.NewRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("node %s listening on :%s (peers: %v)", nodeID, port, peerIDs)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down node", nodeID)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
