package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/study-flamingo/iq-mcp-sub000/internal/importer"
)

// maxUploadSize caps the raw-markdown upload body.
const maxUploadSize = 4 << 20

// ImportHandlers contains HTTP handlers for the markdown import API.
type ImportHandlers struct {
	importer *importer.Importer
}

// NewImportHandlers creates a new ImportHandlers backed by the given
// graph manager.
func NewImportHandlers(manager *graph.Manager, opts ...importer.Option) *ImportHandlers {
	return &ImportHandlers{
		importer: importer.New(manager, opts...),
	}
}

// importPathRequest is the JSON body for POST /api/import/markdown when
// a server-side directory path is supplied.
type importPathRequest struct {
	// Path names a directory on the server's own filesystem.
	Path string `json:"path"`
}

// PostMarkdownImport handles POST /api/import/markdown.
//
// Two request forms are accepted:
//   - application/json with {"path": "/absolute/or/relative/dir"} imports
//     every markdown file under a server-side directory.
//   - any other content type is treated as one raw markdown note; the
//     optional ?filename= query names the note when it has no front-matter
//     name, title, or H1.
//
// The import runs synchronously and responds with the full result.
func (h *ImportHandlers) PostMarkdownImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.importByPath(w, r)
		return
	}
	h.importUploadedNote(w, r)
}

// importByPath imports a server-side directory of markdown files.
func (h *ImportHandlers) importByPath(w http.ResponseWriter, r *http.Request) {
	var req importPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		respondError(w, http.StatusBadRequest, "path must not be empty", nil)
		return
	}

	// Relative paths are taken from the server's working directory.
	dirPath, err := filepath.Abs(req.Path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "resolving import path failed", err)
		return
	}
	if info, err := os.Stat(dirPath); err != nil || !info.IsDir() {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("no such directory: %s", req.Path), nil)
		return
	}

	result, err := h.importer.ImportDirectory(r.Context(), dirPath)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "import failed", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// importUploadedNote imports the request body as a single markdown note.
func (h *ImportHandlers) importUploadedNote(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		respondError(w, http.StatusBadRequest, "request body is empty", nil)
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "upload.md"
	}

	note, err := importer.ParseNote(body, filename, filename)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse markdown", err)
		return
	}

	result, err := h.importer.Import(r.Context(), []*importer.ParsedNote{note})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "import failed", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
