package handlers

import (
	"net/http"
	"strings"

	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
)

// SearchHandler handles the search API endpoint.
type SearchHandler struct {
	manager *graph.Manager
}

// NewSearchHandler creates a new SearchHandler instance.
func NewSearchHandler(manager *graph.Manager) *SearchHandler {
	return &SearchHandler{manager: manager}
}

// SearchResult is a single entity match.
type SearchResult struct {
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Icon             string   `json:"icon,omitempty"`
	Aliases          []string `json:"aliases,omitempty"`
	ObservationCount int      `json:"observation_count"`
}

// Search handles GET /api/search — case-insensitive substring search over
// entity names, types, aliases, and observation contents.
//
// Query parameters:
//   - q         — search query (optional; omit to browse all entities)
//   - page      — page number (default 1)
//   - page_size — results per page (default 20, max 100)
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := strings.TrimSpace(r.URL.Query().Get("q"))

	page := parseInt(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize := parseInt(r.URL.Query().Get("page_size"), 20)
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	g, err := h.manager.SearchNodes(ctx, query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed", err)
		return
	}

	total := len(g.Entities)
	start := offset
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	results := make([]SearchResult, 0, end-start)
	for _, e := range g.Entities[start:end] {
		results = append(results, SearchResult{
			Name:             e.Name,
			Type:             e.EntityType,
			Icon:             e.Icon,
			Aliases:          e.Aliases,
			ObservationCount: len(e.Observations),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":     query,
		"results":   results,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"has_more":  end < total,
	})
}
