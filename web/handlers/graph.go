package handlers

import (
	"fmt"
	"net/http"

	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// GraphHandler serves the graph topology and entity detail endpoints.
type GraphHandler struct {
	manager *graph.Manager
}

// NewGraphHandler creates a new GraphHandler instance.
func NewGraphHandler(manager *graph.Manager) *GraphHandler {
	return &GraphHandler{manager: manager}
}

// EntityDetailResponse is the response format for GET /api/entities/{name}.
// Observations are grouped by durability class.
type EntityDetailResponse struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Type         string                   `json:"type"`
	Icon         string                   `json:"icon,omitempty"`
	Aliases      []string                 `json:"aliases,omitempty"`
	Observations *graph.DurabilityBuckets `json:"observations"`
	Relations    []types.Relation         `json:"relations"`
}

// GetGraph handles GET /api/graph - returns the whole graph as a
// topology-only node/edge list (no layout coordinates).
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	g, err := h.manager.ReadGraph(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read graph", err)
		return
	}

	observations := 0
	nodes := make([]GraphNode, 0, len(g.Entities))
	for _, e := range g.Entities {
		nodes = append(nodes, GraphNode{
			ID:               e.ID,
			Name:             e.Name,
			Type:             e.EntityType,
			Icon:             e.Icon,
			Aliases:          e.Aliases,
			ObservationCount: len(e.Observations),
		})
		observations += len(e.Observations)
	}

	edges := make([]GraphEdge, 0, len(g.Relations))
	for _, rel := range g.Relations {
		edges = append(edges, GraphEdge{
			Source: rel.FromEntity,
			Target: rel.ToEntity,
			Type:   rel.RelationType,
		})
	}

	meta := GraphMeta{
		NodeCount:        len(nodes),
		EdgeCount:        len(edges),
		ObservationCount: observations,
	}
	if g.UserInfo != nil && !g.UserInfo.IsDefault() {
		meta.User = g.UserInfo.PreferredName
	}

	respondJSON(w, http.StatusOK, GraphResponse{
		Nodes: nodes,
		Edges: edges,
		Meta:  meta,
	})
}

// GetEntity handles GET /api/entities/{name} - returns one entity with its
// observations grouped by durability and every relation touching it.
// The name segment resolves aliases the same way tool calls do.
func (h *GraphHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name := r.PathValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "entity name is required", nil)
		return
	}

	g, err := h.manager.ReadGraph(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read graph", err)
		return
	}

	var entity *types.Entity
	for _, e := range g.Entities {
		if e.Matches(name) {
			entity = e
			break
		}
	}
	if entity == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("entity %q not found", name), nil)
		return
	}

	buckets, err := h.manager.ObservationsByDurability(ctx, entity.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load observations", err)
		return
	}

	relations := []types.Relation{}
	for _, rel := range g.Relations {
		if rel.Touches(entity.Name) {
			relations = append(relations, rel)
		}
	}

	respondJSON(w, http.StatusOK, EntityDetailResponse{
		ID:           entity.ID,
		Name:         entity.Name,
		Type:         entity.EntityType,
		Icon:         entity.Icon,
		Aliases:      entity.Aliases,
		Observations: buckets,
		Relations:    relations,
	})
}
