package handlers

import (
	"net/http"

	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// StatsHandler handles statistics endpoint requests.
type StatsHandler struct {
	manager *graph.Manager
}

// NewStatsHandler creates a new StatsHandler instance.
func NewStatsHandler(manager *graph.Manager) *StatsHandler {
	return &StatsHandler{manager: manager}
}

// GetStats handles GET /api/stats - returns graph statistics.
// Unknown durabilities count under short_term, matching how decay
// treats them.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	g, err := h.manager.ReadGraph(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read graph", err)
		return
	}

	stats := StatsResponse{
		Entities:  len(g.Entities),
		Relations: len(g.Relations),
		Durability: map[string]int{
			string(types.DurabilityPermanent): 0,
			string(types.DurabilityLongTerm):  0,
			string(types.DurabilityShortTerm): 0,
			string(types.DurabilityTemporary): 0,
		},
		EntityTypes: map[string]int{},
	}

	for _, e := range g.Entities {
		stats.Observations += len(e.Observations)
		if e.EntityType != "" {
			stats.EntityTypes[e.EntityType]++
		}
		for _, obs := range e.Observations {
			switch obs.Durability {
			case types.DurabilityPermanent, types.DurabilityLongTerm, types.DurabilityTemporary:
				stats.Durability[string(obs.Durability)]++
			default:
				stats.Durability[string(types.DurabilityShortTerm)]++
			}
		}
	}

	respondJSON(w, http.StatusOK, stats)
}
