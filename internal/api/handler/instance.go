package handler

import (
	"net/http"
	"strings"

	"github.com/bcnelson/console-cache/internal/api/middleware"
	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/permission"
	"github.com/bcnelson/console-cache/internal/service"
	"github.com/bcnelson/console-cache/internal/validation"
	"github.com/go-chi/chi/v5"
)

// InstanceHandler handles instance and data source endpoints.
type InstanceHandler struct {
	console *service.Console
}

// NewInstanceHandler creates a new InstanceHandler.
func NewInstanceHandler(console *service.Console) *InstanceHandler {
	return &InstanceHandler{console: console}
}

type instanceListResponse struct {
	Instances []*domain.ComposedInstance `json:"instances"`
	Ready     bool                       `json:"ready"`
}

// List lists instances. With cached=true the current cache view is returned at once and
// a missing list fetch is started in the background.
func (h *InstanceHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, permission.InstancesList) {
		return
	}
	showDeleted, _ := queryBool(r, "showDeleted")
	instances := h.console.Instances

	if cached, _ := queryBool(r, "cached"); cached {
		list, ready := instances.InstanceListView(r.Context(), showDeleted)
		respondJSON(w, http.StatusOK, instanceListResponse{Instances: nonNil(list), Ready: ready})
		return
	}

	list, err := instances.ListInstances(r.Context(), showDeleted)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, instanceListResponse{Instances: nonNil(list), Ready: true})
}

// Count reports active instances and how many of them hold an activation.
func (h *InstanceHandler) Count(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, permission.InstancesList) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"active":    len(h.console.Instances.ActiveInstanceList()),
		"activated": h.console.Instances.ActivateInstanceCount(),
	})
}

// Create creates a new instance.
func (h *InstanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, permission.InstancesCreate) {
		return
	}
	var req domain.CreateInstanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validation.ValidateCreateInstance(&req); errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	req.Instance.Name = "instances/" + req.InstanceID
	created, err := h.console.Instances.CreateInstance(r.Context(), &req.Instance)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Get returns one instance, fetching it when it is not cached.
func (h *InstanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, permission.InstancesGet) {
		return
	}
	ins, err := h.console.Instances.GetOrFetchInstanceByName(r.Context(), instanceName(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ins)
}

// Update updates the fields named in the update mask.
func (h *InstanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, permission.InstancesUpdate) {
		return
	}
	var req domain.UpdateInstanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.UpdateMask) == 0 {
		respondError(w, http.StatusBadRequest, "updateMask is required")
		return
	}
	if err := validation.ValidateEnvironmentName(req.Instance.Environment); err != nil {
		respondValidationErrors(w, validation.ValidationErrors{{Field: "instance.environment", Value: req.Instance.Environment, Message: err.Error()}})
		return
	}

	req.Instance.Name = instanceName(chi.URLParam(r, "id"))
	updated, err := h.console.Instances.UpdateInstance(r.Context(), &req.Instance, req.UpdateMask)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Action dispatches the custom methods "{id}:archive", "{id}:restore" and "{id}:sync".
func (h *InstanceHandler) Action(w http.ResponseWriter, r *http.Request) {
	id, verb, ok := strings.Cut(chi.URLParam(r, "id"), ":")
	if !ok || id == "" {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	verbPermissions := map[string]string{
		"archive": permission.InstancesDelete,
		"restore": permission.InstancesUndelete,
		"sync":    permission.InstancesSync,
	}
	if perm, known := verbPermissions[verb]; known && !h.allowed(w, r, perm) {
		return
	}
	ctx := r.Context()
	name := instanceName(id)

	switch verb {
	case "archive":
		ins, err := h.console.Instances.GetOrFetchInstanceByName(ctx, name)
		if err != nil {
			handleError(w, err)
			return
		}
		force, _ := queryBool(r, "force")
		archived, err := h.console.Instances.ArchiveInstance(ctx, &ins.Instance, force)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, archived)

	case "restore":
		ins, err := h.console.Instances.GetOrFetchInstanceByName(ctx, name)
		if err != nil {
			handleError(w, err)
			return
		}
		restored, err := h.console.Instances.RestoreInstance(ctx, &ins.Instance)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, restored)

	case "sync":
		if async, _ := queryBool(r, "async"); async {
			h.console.InstanceSync.Trigger(name)
			respondJSON(w, http.StatusAccepted, map[string]any{"pending": h.console.InstanceSync.Pending()})
			return
		}
		if err := h.console.Instances.SyncInstance(ctx, name); err != nil {
			handleError(w, err)
			return
		}
		refreshed, err := h.console.Instances.FetchInstanceByName(ctx, name)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, refreshed)

	default:
		respondError(w, http.StatusNotFound, "unknown instance method "+verb)
	}
}

// BatchSync resyncs several instances in one backend call.
func (h *InstanceHandler) BatchSync(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, permission.InstancesSync) {
		return
	}
	var req domain.BatchSyncRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Names) == 0 {
		respondError(w, http.StatusBadRequest, "names are required")
		return
	}
	if err := h.console.Instances.BatchSyncInstances(r.Context(), req.Names); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateDataSource adds a data source to an instance.
func (h *InstanceHandler) CreateDataSource(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, permission.InstancesUpdate) {
		return
	}
	var req domain.DataSourceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validation.ValidateDataSource(req.DataSource); errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}
	h.mutateDataSource(w, r, http.StatusCreated, func(ins *domain.Instance) (*domain.ComposedInstance, error) {
		return h.console.Instances.CreateDataSource(r.Context(), ins, req.DataSource)
	})
}

// UpdateDataSource updates the fields of a data source named in the update mask.
func (h *InstanceHandler) UpdateDataSource(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, permission.InstancesUpdate) {
		return
	}
	var req domain.DataSourceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.DataSource.ID = chi.URLParam(r, "ds")
	h.mutateDataSource(w, r, http.StatusOK, func(ins *domain.Instance) (*domain.ComposedInstance, error) {
		return h.console.Instances.UpdateDataSource(r.Context(), ins, req.DataSource, req.UpdateMask)
	})
}

// DeleteDataSource removes a data source.
func (h *InstanceHandler) DeleteDataSource(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, permission.InstancesUpdate) {
		return
	}
	ds := domain.DataSource{ID: chi.URLParam(r, "ds")}
	h.mutateDataSource(w, r, http.StatusOK, func(ins *domain.Instance) (*domain.ComposedInstance, error) {
		return h.console.Instances.DeleteDataSource(r.Context(), ins, ds)
	})
}

func (h *InstanceHandler) mutateDataSource(w http.ResponseWriter, r *http.Request, status int, fn func(*domain.Instance) (*domain.ComposedInstance, error)) {
	ins, err := h.console.Instances.GetOrFetchInstanceByName(r.Context(), instanceName(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, err)
		return
	}
	updated, err := fn(&ins.Instance)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, status, updated)
}

// allowed checks a workspace-level permission and writes 403 when it is missing.
func (h *InstanceHandler) allowed(w http.ResponseWriter, r *http.Request, perm string) bool {
	if h.console.Oracle.HasProjectPermission(nil, middleware.GetPrincipal(r.Context()), perm) {
		return true
	}
	respondError(w, http.StatusForbidden, "permission denied: "+perm)
	return false
}

func instanceName(id string) string {
	return "instances/" + id
}

func nonNil[T any](list []*T) []*T {
	if list == nil {
		return []*T{}
	}
	return list
}
