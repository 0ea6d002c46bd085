// Package handler exposes the list service over a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/feira/internal/backup"
	"github.com/dukerupert/feira/internal/importer"
	"github.com/dukerupert/feira/internal/remote"
	"github.com/dukerupert/feira/internal/shopping"
	"github.com/dukerupert/feira/internal/store"
)

// maxBodyBytes caps request bodies; imports of full backups are the largest.
const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return false
	}
	return true
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shopping.ErrListNotFound),
		errors.Is(err, shopping.ErrItemNotFound),
		errors.Is(err, store.ErrBackupNotFound):
		return http.StatusNotFound
	case errors.Is(err, shopping.ErrEmptyName),
		errors.Is(err, shopping.ErrNoItems),
		errors.Is(err, shopping.ErrSectionToggle),
		errors.Is(err, shopping.ErrInvalidItem),
		errors.Is(err, importer.ErrInvalidDeepLink),
		errors.Is(err, remote.ErrInvalidEndpoint),
		errors.Is(err, backup.ErrNoPassphrase),
		errors.Is(err, backup.ErrDecrypt):
		return http.StatusBadRequest
	case errors.Is(err, backup.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status code. Client errors carry the error text;
// everything else is logged and reported as msg.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, "error", err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
