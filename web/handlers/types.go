// Package handlers provides the HTTP handlers and middleware behind the
// iq-web read-only API. Visualization frontends consume these endpoints;
// all graph access goes through the graph manager, never the store
// directly.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// GraphNode represents an entity in the graph topology response.
type GraphNode struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Icon             string   `json:"icon,omitempty"`
	Aliases          []string `json:"aliases,omitempty"`
	ObservationCount int      `json:"observation_count"`
}

// GraphEdge represents a relation in the graph topology response.
// Source and Target are entity names; an endpoint may name an entity
// that does not exist yet, since dangling relations are legal.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GraphMeta summarizes the topology alongside the node and edge lists.
type GraphMeta struct {
	NodeCount        int    `json:"node_count"`
	EdgeCount        int    `json:"edge_count"`
	ObservationCount int    `json:"observation_count"`
	User             string `json:"user,omitempty"`
}

// GraphResponse is the response format for GET /api/graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
	Meta  GraphMeta   `json:"meta"`
}

// StatsResponse is the response format for GET /api/stats.
type StatsResponse struct {
	Entities     int            `json:"entities"`
	Relations    int            `json:"relations"`
	Observations int            `json:"observations"`
	Durability   map[string]int `json:"durability"`
	EntityTypes  map[string]int `json:"entity_types"`
}

// parseInt parses s as an int, falling back to defaultValue on empty or
// malformed input.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent, so the best we can do is note it.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}
