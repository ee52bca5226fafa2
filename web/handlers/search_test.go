package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeSearch unpacks the search response envelope and its results list.
func decodeSearch(t *testing.T, body []byte) (map[string]interface{}, []interface{}) {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &envelope))
	results, ok := envelope["results"].([]interface{})
	require.True(t, ok, "results must be a JSON array")
	return envelope, results
}

func TestSearchHandler_Search(t *testing.T) {
	tests := []struct {
		name  string
		seed  func(t *testing.T, m *graph.Manager)
		query string
		check func(t *testing.T, envelope map[string]interface{}, results []interface{})
	}{
		{
			name:  "query matches name and observation content",
			seed:  seedGraph,
			query: "?q=acme",
			check: func(t *testing.T, envelope map[string]interface{}, results []interface{}) {
				assert.Equal(t, "acme", envelope["query"])
				// Acme by name, Alice via "works at Acme".
				assert.Len(t, results, 2)
				assert.Equal(t, float64(2), envelope["total"])
			},
		},
		{
			name:  "alias matches",
			seed:  seedGraph,
			query: "?q=ally",
			check: func(t *testing.T, envelope map[string]interface{}, results []interface{}) {
				require.Len(t, results, 1)
				first, ok := results[0].(map[string]interface{})
				require.True(t, ok)
				assert.Equal(t, "Alice", first["name"])
			},
		},
		{
			name:  "no matches",
			seed:  seedGraph,
			query: "?q=nonexistentzzzq",
			check: func(t *testing.T, envelope map[string]interface{}, results []interface{}) {
				assert.Equal(t, float64(0), envelope["total"])
				assert.Empty(t, results)
			},
		},
		{
			name:  "missing query returns all entities",
			seed:  seedGraph,
			query: "?page=1&page_size=20",
			check: func(t *testing.T, envelope map[string]interface{}, results []interface{}) {
				assert.Equal(t, "", envelope["query"])
				assert.Equal(t, float64(2), envelope["total"])
				assert.Equal(t, float64(1), envelope["page"])
				assert.Equal(t, float64(20), envelope["page_size"])
				assert.Equal(t, false, envelope["has_more"])
			},
		},
		{
			name:  "pagination slices results",
			seed:  seedGraph,
			query: "?page=2&page_size=1",
			check: func(t *testing.T, envelope map[string]interface{}, results []interface{}) {
				assert.Equal(t, float64(2), envelope["total"])
				assert.Len(t, results, 1)
				assert.Equal(t, false, envelope["has_more"])
			},
		},
		{
			name:  "first page reports more",
			seed:  seedGraph,
			query: "?page=1&page_size=1",
			check: func(t *testing.T, envelope map[string]interface{}, results []interface{}) {
				assert.Equal(t, true, envelope["has_more"])
			},
		},
		{
			name:  "empty graph",
			seed:  func(t *testing.T, m *graph.Manager) {},
			query: "?q=anything",
			check: func(t *testing.T, envelope map[string]interface{}, results []interface{}) {
				assert.Equal(t, float64(0), envelope["total"])
				assert.Empty(t, results)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := newTestManager(t)
			tt.seed(t, manager)

			req := httptest.NewRequest(http.MethodGet, "/api/search"+tt.query, nil)
			rec := httptest.NewRecorder()
			NewSearchHandler(manager).Search(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			envelope, results := decodeSearch(t, rec.Body.Bytes())
			tt.check(t, envelope, results)
		})
	}
}
