package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/feira/internal/remote"
	"github.com/dukerupert/feira/internal/store"
	"github.com/dukerupert/feira/internal/websocket"
)

// EndpointSetter receives the sync endpoint whenever it changes.
type EndpointSetter interface {
	Endpoint() string
	SetEndpoint(endpoint string)
}

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	sync          EndpointSetter
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, sync EndpointSetter, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, sync: sync, hub: hub, logger: logger.With("component", "handler")}
}

func (h *SettingsHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *SettingsHandler) GetSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        h.sync.Endpoint(),
		"configured": remote.ValidEndpoint(h.sync.Endpoint()),
	})
}

// UpdateSync stores the spreadsheet endpoint. An empty URL turns sync off.
func (h *SettingsHandler) UpdateSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)
	if url != "" && !remote.ValidEndpoint(url) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": remote.ErrInvalidEndpoint.Error()})
		return
	}
	if err := h.settingsStore.SetSheetsURL(url); err != nil {
		writeError(w, h.logger, err, "failed to save settings")
		return
	}
	h.sync.SetEndpoint(url)
	h.broadcast(websocket.NewMessage("settings", "updated", "sync", nil))
	writeJSON(w, http.StatusOK, map[string]any{"url": url, "configured": url != ""})
}

func (h *SettingsHandler) GetBackup(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.GetBackupSettings()
	if err != nil {
		writeError(w, h.logger, err, "failed to get settings")
		return
	}
	delete(settings, store.KeyBackupSalt)
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateBackup(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validateBackupSettings(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	for key, value := range req {
		if err := h.settingsStore.Set(key, value); err != nil {
			writeError(w, h.logger, err, "failed to save settings")
			return
		}
	}

	h.broadcast(websocket.NewMessage("settings", "updated", "backup", nil))

	settings, err := h.settingsStore.GetBackupSettings()
	if err != nil {
		writeError(w, h.logger, err, "failed to get settings")
		return
	}
	delete(settings, store.KeyBackupSalt)
	writeJSON(w, http.StatusOK, settings)
}

func validateBackupSettings(settings map[string]string) error {
	for key, value := range settings {
		switch key {
		case store.KeyBackupEnabled:
			if value != "true" && value != "false" {
				return fmt.Errorf("%s must be \"true\" or \"false\"", key)
			}
		case store.KeyBackupScheduleHour:
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 || n > 23 {
				return fmt.Errorf("%s must be 0-23", key)
			}
		case store.KeyBackupRetentionDays:
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 365 {
				return fmt.Errorf("%s must be 1-365", key)
			}
		default:
			return fmt.Errorf("unknown setting: %s", key)
		}
	}
	return nil
}
