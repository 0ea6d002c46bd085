package handler

import (
	"net/http"

	"github.com/dukerupert/feira/internal/shopping"
)

type textRequest struct {
	Text string `json:"text"`
}

// AddItem parses a single line into an item.
func (h *ListHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.AddItemText(r.PathValue("id"), req.Text)
	if err != nil {
		writeError(w, h.logger, err, "failed to add item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// AddBulk parses a pasted block and appends every item it yields.
func (h *ListHandler) AddBulk(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	items, err := h.svc.AddItems(r.PathValue("id"), req.Text)
	if err != nil {
		writeError(w, h.logger, err, "failed to add items")
		return
	}
	writeJSON(w, http.StatusCreated, items)
}

func (h *ListHandler) AddSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sec, err := h.svc.AddSection(r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, h.logger, err, "failed to add section")
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

func (h *ListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req shopping.ItemPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.EditItem(r.PathValue("id"), r.PathValue("item_id"), req)
	if err != nil {
		writeError(w, h.logger, err, "failed to update item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteItem(r.PathValue("id"), r.PathValue("item_id")); err != nil {
		writeError(w, h.logger, err, "failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.ToggleItem(r.PathValue("id"), r.PathValue("item_id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to toggle item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ListHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.MoveItem(r.PathValue("id"), r.PathValue("item_id"), req.Index); err != nil {
		writeError(w, h.logger, err, "failed to move item")
		return
	}
	l, err := h.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to get list")
		return
	}
	writeJSON(w, http.StatusOK, l.Items)
}
