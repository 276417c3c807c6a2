package api

import (
	"log/slog"
	"net/http"
)

type reindexResponse struct {
	Status string `json:"status"`
}

type reindexHandler struct {
	reindexer Reindexer
	logger    *slog.Logger
}

// rebuild regenerates the retrieval index synchronously. In-flight runs
// keep their current index handle; new lookups see the fresh index.
func (h *reindexHandler) rebuild(w http.ResponseWriter, r *http.Request) {
	status, err := h.reindexer.RebuildIndex(r.Context())
	if err != nil {
		h.logger.Error("reindex failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}
	writeJSON(w, http.StatusOK, reindexResponse{Status: status})
}
