package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/feira/internal/backup"
	"github.com/dukerupert/feira/internal/model"
)

type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger.With("component", "handler")}
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
	// Remember caches the passphrase for scheduled backups.
	Remember bool `json:"remember"`
}

// decodePassphrase accepts an empty body, which means "use the cached key".
func decodePassphrase(w http.ResponseWriter, r *http.Request) (passphraseRequest, bool) {
	var req passphraseRequest
	if r.ContentLength == 0 {
		return req, true
	}
	return req, decodeJSON(w, r, &req)
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	usage, err := h.manager.Usage()
	if err != nil {
		writeError(w, h.logger, err, "failed to read backup usage")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     h.manager.Status(),
		"cached_key": h.manager.HasCachedKey(),
		"usage":      usage,
	})
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePassphrase(w, r)
	if !ok {
		return
	}
	if req.Remember && req.Passphrase != "" {
		h.manager.CacheKey(req.Passphrase)
	}
	b, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		writeError(w, h.logger, err, "backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	backups, err := h.manager.List(limit)
	if err != nil {
		writeError(w, h.logger, err, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// Restore merges a stored backup into the current lists.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	req, ok := decodePassphrase(w, r)
	if !ok {
		return
	}
	res, err := h.manager.Restore(r.Context(), id, req.Passphrase)
	if err != nil {
		writeError(w, h.logger, err, "restore failed")
		return
	}
	if res.ListIDs == nil {
		res.ListIDs = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}
