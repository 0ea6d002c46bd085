package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/feira/internal/syncer"
)

type SyncHandler struct {
	manager *syncer.Manager
	logger  *slog.Logger
}

func NewSyncHandler(m *syncer.Manager, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{manager: m, logger: logger.With("component", "handler")}
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status(r.PathValue("id")))
}

// Pull forces a pull from the spreadsheet. Skipped pulls are not errors:
// the reason is reported next to the current status.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.manager.Pull(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"status": h.manager.Status(id)})
	case errors.Is(err, syncer.ErrSkipped):
		writeJSON(w, http.StatusOK, map[string]any{"status": h.manager.Status(id), "skipped": err.Error()})
	case statusFor(err) == http.StatusNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Warn("manual pull failed", "list_id", id, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "sync failed"})
	}
}
