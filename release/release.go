// Package release answers desktop client update checks.
package release

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
)

// Info describes the latest published client build.
type Info struct {
	Version   string `json:"version"`
	URL       string `json:"url"`
	Notes     string `json:"notes"`
	Signature string `json:"signature"`
}

type Handler struct {
	latest Info
	files  fs.FS
}

// NewHandler serves update checks for latest. Artifacts found in files by
// name are served as-is; files may be nil.
func NewHandler(latest Info, files fs.FS) *Handler {
	return &Handler{latest: latest, files: files}
}

// ServeHTTP expects the requested name in the "version" path value. A
// matching artifact wins, a client already on the latest version gets 204,
// anything else gets the latest release manifest.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	version := r.PathValue("version")

	if h.isArtifact(version) {
		http.ServeFileFS(w, r, h.files, version)
		return
	}

	if version == h.latest.Version {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.latest); err != nil {
		slog.Error("release manifest write failed", "error", err)
	}
}

func (h *Handler) isArtifact(name string) bool {
	if h.files == nil || name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(h.files, name)
	return err == nil && !info.IsDir()
}
