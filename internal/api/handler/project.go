package handler

import (
	"net/http"

	"github.com/bcnelson/console-cache/internal/api/middleware"
	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/permission"
	"github.com/bcnelson/console-cache/internal/service"
	"github.com/go-chi/chi/v5"
)

// ProjectHandler handles project and environment endpoints.
type ProjectHandler struct {
	console *service.Console
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(console *service.Console) *ProjectHandler {
	return &ProjectHandler{console: console}
}

// List lists the projects the principal may view.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	showDeleted, _ := queryBool(r, "showDeleted")
	me := middleware.GetPrincipal(r.Context())

	list, err := h.console.Projects.ListProjects(r.Context(), showDeleted)
	if err != nil {
		handleError(w, err)
		return
	}
	visible := make([]*domain.Project, 0, len(list))
	for _, p := range list {
		if h.console.Oracle.HasProjectPermission(p, me, permission.ProjectsGet) {
			visible = append(visible, p)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"projects": visible})
}

// Get returns one project.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r, permission.ProjectsGet)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// loadProject resolves the {project} URL parameter and checks perm for the principal.
// It writes the error response itself and reports whether the caller may continue.
func (h *ProjectHandler) loadProject(w http.ResponseWriter, r *http.Request, perms ...string) (*domain.Project, bool) {
	project, err := h.console.Projects.GetOrFetchProjectByName(r.Context(), "projects/"+chi.URLParam(r, "project"))
	if err != nil {
		handleError(w, err)
		return nil, false
	}
	me := middleware.GetPrincipal(r.Context())
	for _, perm := range perms {
		if !h.console.Oracle.HasProjectPermission(project, me, perm) {
			respondError(w, http.StatusForbidden, "permission denied: "+perm)
			return nil, false
		}
	}
	return project, true
}

// ListEnvironments lists environments.
func (h *ProjectHandler) ListEnvironments(w http.ResponseWriter, r *http.Request) {
	showDeleted, _ := queryBool(r, "showDeleted")
	list, err := h.console.Environments.ListEnvironments(r.Context(), showDeleted)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"environments": nonNil(list)})
}
