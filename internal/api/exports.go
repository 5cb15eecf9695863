package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ExportHandler serves converted notes from the export directory.
type ExportHandler struct {
	dir string
}

// NewExportHandler creates a handler rooted at the export directory.
func NewExportHandler(dir string) *ExportHandler {
	return &ExportHandler{dir: dir}
}

// safeName validates that the filename is a plain markdown name (no path
// separators, no traversal) and returns its absolute path.
func (h *ExportHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if !strings.EqualFold(filepath.Ext(cleaned), ".md") {
		return "", fmt.Errorf("not a markdown file: %s", name)
	}
	root, err := filepath.Abs(h.dir)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(root, cleaned)
	if !strings.HasPrefix(abs, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes export directory")
	}
	return abs, nil
}

// ServeFile handles GET /api/exports/{filename}.
//
//	@Summary		Download an exported note
//	@Tags			conversions
//	@Produce		text/markdown
//	@Param			filename	path	string	true	"Exported file name"
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/exports/{filename} [get]
func (h *ExportHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.safeName(chi.URLParam(r, "filename"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	http.ServeFile(w, r, abs)
}
