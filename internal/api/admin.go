package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/groundcovergroup/supportbot/internal/ingest"
)

// Reindexer rebuilds the knowledge base index. Implemented by
// ingest.Indexer.
type Reindexer interface {
	Run(ctx context.Context) (ingest.Result, error)
}

type adminHandler struct {
	indexer  Reindexer
	adminKey string
	logger   *slog.Logger
}

// reindex handles POST /api/v1/admin/reindex. Guarded by the X-Admin-Key
// header; with no key configured the endpoint is disabled entirely.
func (h *adminHandler) reindex(w http.ResponseWriter, r *http.Request) {
	if h.adminKey == "" {
		writeError(w, http.StatusServiceUnavailable, "admin_disabled", "admin endpoints are not configured", h.logger)
		return
	}

	key := r.Header.Get("X-Admin-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.adminKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid admin key", h.logger)
		return
	}

	res, err := h.indexer.Run(r.Context())
	if err != nil {
		h.logger.Error("reindex failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reindex_failed", "reindexing failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files_added":     res.FilesAdded,
		"files_skipped":   res.FilesSkipped,
		"files_failed":    res.FilesFailed,
		"chunks_added":    res.ChunksAdded,
		"sources_removed": res.SourcesRemoved,
		"duration":        res.Duration.String(),
	}, h.logger)
}
