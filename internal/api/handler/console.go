package handler

import (
	"net/http"

	"github.com/bcnelson/console-cache/internal/api/middleware"
	"github.com/bcnelson/console-cache/internal/filter"
	"github.com/bcnelson/console-cache/internal/service"
)

// ConsoleHandler handles the per-principal console state endpoints.
type ConsoleHandler struct {
	console *service.Console
}

// NewConsoleHandler creates a new ConsoleHandler.
func NewConsoleHandler(console *service.Console) *ConsoleHandler {
	return &ConsoleHandler{console: console}
}

type recordRecentRequest struct {
	Project string `json:"project"`
}

// Me returns the authenticated principal.
func (h *ConsoleHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, middleware.GetPrincipal(r.Context()))
}

// ListRecentProjects returns the recently viewed projects the principal can still see.
func (h *ConsoleHandler) ListRecentProjects(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetPrincipal(r.Context())
	projects, err := h.console.RecentProjects.Projects(r.Context(), me)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// RecordRecentProject moves a project to the front of the recency list.
func (h *ConsoleHandler) RecordRecentProject(w http.ResponseWriter, r *http.Request) {
	var req recordRecentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	me := middleware.GetPrincipal(r.Context())
	if err := h.console.RecentProjects.Record(r.Context(), me, req.Project); err != nil {
		handleError(w, err)
		return
	}
	names, err := h.console.RecentProjects.Names(r.Context(), me)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"names": names})
}

// ClearRecentProjects forgets the principal's recency list.
func (h *ConsoleHandler) ClearRecentProjects(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetPrincipal(r.Context())
	if err := h.console.RecentProjects.Clear(r.Context(), me); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFilter returns the current view filter.
func (h *ConsoleHandler) GetFilter(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.console.Filter.Get())
}

// SetFilter replaces the current view filter.
func (h *ConsoleHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var f filter.Filter
	if err := decodeJSON(r, &f); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.console.Filter.Set(f)
	respondJSON(w, http.StatusOK, f)
}

// ResetSession clears every entity store.
func (h *ConsoleHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	h.console.Reset()
	w.WriteHeader(http.StatusNoContent)
}
