package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/dukerupert/feira/internal/export"
	"github.com/dukerupert/feira/internal/importer"
)

// readPayload decodes an import body. CSV bodies (text/csv) are read as a
// sheet of items; anything else must be JSON. ok is false once a response
// has been written.
func (h *ListHandler) readPayload(w http.ResponseWriter, r *http.Request) (p importer.Payload, ok bool) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "text/csv" {
		items, err := export.ReadCSV(body, h.gen)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid CSV"})
			return p, false
		}
		return importer.Payload{Kind: importer.KindItems, Items: items}, true
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return p, false
	}
	p, err = importer.Decode(raw, h.gen)
	if errors.Is(err, importer.ErrUnrecognizedShape) {
		// Well-formed but foreign JSON imports nothing.
		return importer.Payload{}, true
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return p, false
	}
	return p, true
}

// Import stores a full backup, a single list or a bare item array.
func (h *ListHandler) Import(w http.ResponseWriter, r *http.Request) {
	p, ok := h.readPayload(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Import(p)
	if err != nil {
		writeError(w, h.logger, err, "failed to import")
		return
	}
	if res.ListIDs == nil {
		res.ListIDs = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}

// Merge adds the items of an uploaded file to an existing list.
func (h *ListHandler) Merge(w http.ResponseWriter, r *http.Request) {
	p, ok := h.readPayload(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MergeInto(r.PathValue("id"), p)
	if err != nil {
		writeError(w, h.logger, err, "failed to merge")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"merged": n})
}

func (h *ListHandler) ImportDeepLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fragment string `json:"fragment"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.ImportDeepLink(req.Fragment)
	if err != nil {
		writeError(w, h.logger, err, "failed to import link")
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(l))
}

func (h *ListHandler) Share(w http.ResponseWriter, r *http.Request) {
	frag, err := h.svc.ShareLink(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to build share link")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fragment": frag})
}

// Export downloads every list as a JSON backup.
func (h *ListHandler) Export(w http.ResponseWriter, r *http.Request) {
	name := export.BackupFilename(time.Now())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.WriteJSON(w, h.svc.Lists()); err != nil {
		h.logger.Error("export lists", "error", err)
	}
}

// ExportCSV downloads one list in spreadsheet layout.
func (h *ListHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to get list")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ListFilename(l.Name, ".csv")))
	if err := export.WriteCSV(w, l); err != nil {
		h.logger.Error("export csv", "list_id", l.ID, "error", err)
	}
}
