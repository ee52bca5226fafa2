package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/study-flamingo/iq-mcp-sub000/internal/importer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const importTestNote = `---
name: Redwood
type: project
durability: long_term
---

# Redwood

- kicked off in March
- links to [[Alice]]
`

func TestImportHandlers_PostMarkdownImport_Directory(t *testing.T) {
	manager := newTestManager(t)
	handler := NewImportHandlers(manager)

	vault := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vault, "redwood.md"), []byte(importTestNote), 0o644))

	body, err := json.Marshal(map[string]string{"path": vault})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/import/markdown", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.PostMarkdownImport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var result importer.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 1, result.EntitiesCreated)
	assert.Equal(t, 2, result.ObservationsAdded)
	assert.Equal(t, 1, result.RelationsCreated)

	g, err := manager.OpenNodes(context.Background(), []string{"Redwood"})
	require.NoError(t, err)
	require.Len(t, g.Entities, 1)
	assert.Equal(t, "project", g.Entities[0].EntityType)
}

func TestImportHandlers_PostMarkdownImport_Upload(t *testing.T) {
	manager := newTestManager(t)
	handler := NewImportHandlers(manager)

	req := httptest.NewRequest(http.MethodPost, "/api/import/markdown", strings.NewReader(importTestNote))
	req.Header.Set("Content-Type", "text/markdown")
	rec := httptest.NewRecorder()

	handler.PostMarkdownImport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var result importer.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.EntitiesCreated)
	assert.Equal(t, 2, result.ObservationsAdded)

	g, err := manager.OpenNodes(context.Background(), []string{"Redwood"})
	require.NoError(t, err)
	require.Len(t, g.Entities, 1)
}

func TestImportHandlers_PostMarkdownImport_Errors(t *testing.T) {
	handler := NewImportHandlers(newTestManager(t))

	tests := []struct {
		name           string
		method         string
		contentType    string
		body           string
		expectedStatus int
	}{
		{"rejects GET", http.MethodGet, "application/json", `{"path":"x"}`, http.StatusMethodNotAllowed},
		{"malformed JSON", http.MethodPost, "application/json", `{"path":`, http.StatusBadRequest},
		{"missing path", http.MethodPost, "application/json", `{"path":"  "}`, http.StatusBadRequest},
		{"nonexistent directory", http.MethodPost, "application/json", `{"path":"/no/such/vault"}`, http.StatusBadRequest},
		{"empty markdown body", http.MethodPost, "text/markdown", "   \n", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/import/markdown", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()

			handler.PostMarkdownImport(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code, "body: %s", rec.Body.String())
		})
	}
}
