package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
	"github.com/dukerupert/feira/internal/shopping"
)

type ListHandler struct {
	svc    *shopping.Service
	gen    ident.Generator
	logger *slog.Logger
}

func NewListHandler(svc *shopping.Service, gen ident.Generator, logger *slog.Logger) *ListHandler {
	return &ListHandler{svc: svc, gen: gen, logger: logger.With("component", "handler")}
}

type listView struct {
	model.ShoppingList
	Summary model.Summary `json:"summary"`
	Percent float64       `json:"percent"`
}

func viewOf(l model.ShoppingList) listView {
	s := model.Summarize(l.Items)
	return listView{ShoppingList: l, Summary: s, Percent: s.Percent()}
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	lists := h.svc.Lists()
	out := make([]listView, len(lists))
	for i, l := range lists {
		out[i] = viewOf(l)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to get list")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(l))
}

type createListRequest struct {
	Name         string `json:"name"`
	Text         string `json:"text"`
	SyncDisabled bool   `json:"syncDisabled"`
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.CreateList(req.Name, req.SyncDisabled)
	if err != nil {
		writeError(w, h.logger, err, "failed to create list")
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(l))
}

// CreateFromText parses a pasted block into a new list.
func (h *ListHandler) CreateFromText(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.CreateFromText(req.Name, req.Text, req.SyncDisabled)
	if err != nil {
		writeError(w, h.logger, err, "failed to create list")
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(l))
}

func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req shopping.ListPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.UpdateList(r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err, "failed to update list")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(l))
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteList(r.PathValue("id")); err != nil {
		writeError(w, h.logger, err, "failed to delete list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.DuplicateList(r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, h.logger, err, "failed to duplicate list")
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(l))
}

func (h *ListHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ClearCompleted(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to clear completed items")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// ResetChecks unchecks every item of a list.
func (h *ListHandler) ResetChecks(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.ResetChecks(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to reset list")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(l))
}
