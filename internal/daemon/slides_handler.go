package daemon

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SlidesHandler serves slide images and run slide manifests. Both routes
// bypass Huma's typed binding since image serving needs raw ResponseWriter
// access and direct control over Content-Type.
type SlidesHandler struct {
	runs      RunManager
	slidesDir string
}

// NewSlidesHandler creates a new slides handler rooted at slidesDir, the
// configured base directory all slide images must resolve inside.
func NewSlidesHandler(runs RunManager, slidesDir string) *SlidesHandler {
	return &SlidesHandler{runs: runs, slidesDir: slidesDir}
}

// ServeImage handles GET /v1/slides/{sourceId}/{index}.
func (h *SlidesHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceId")
	indexStr := chi.URLParam(r, "index")

	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 0 {
		http.Error(w, "invalid slide index", http.StatusBadRequest)
		return
	}

	path, err := h.runs.SlideImagePath(sourceID, index)
	if err != nil {
		http.Error(w, "slide not found", http.StatusNotFound)
		return
	}

	if !h.resolvesInsideSlidesDir(path) {
		http.Error(w, "slide path outside slides directory", http.StatusForbidden)
		return
	}

	http.ServeFile(w, r, path)
}

// ServeSnapshot handles GET /v1/slides/{runId}/snapshot.
func (h *SlidesHandler) ServeSnapshot(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")

	manifest, ok := h.runs.SlidesManifest(runID)
	if !ok {
		http.Error(w, "manifest not yet available", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, manifest)
}

// resolvesInsideSlidesDir guards against a manipulated sourceId/index escaping
// the configured slides directory via "..".
func (h *SlidesHandler) resolvesInsideSlidesDir(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	base, err := filepath.Abs(h.slidesDir)
	if err != nil {
		return false
	}
	return abs == base || strings.HasPrefix(abs, base+string(filepath.Separator))
}
