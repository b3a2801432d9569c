package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/bcnelson/console-cache/internal/api/middleware"
	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/issue"
	"github.com/bcnelson/console-cache/internal/permission"
	"github.com/bcnelson/console-cache/internal/service"
	"github.com/go-chi/chi/v5"
)

// IssueHandler handles issue endpoints.
type IssueHandler struct {
	console  *service.Console
	projects *ProjectHandler
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(console *service.Console) *IssueHandler {
	return &IssueHandler{console: console, projects: NewProjectHandler(console)}
}

// Get returns a composed issue. withPlan and withRollout default to true, or to false
// when shallow=true; either can be set explicitly.
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := issue.DefaultConfig
	if shallow, _ := queryBool(r, "shallow"); shallow {
		cfg = issue.Config{}
	}
	if v, ok := queryBool(r, "withPlan"); ok {
		cfg.WithPlan = v
	}
	if v, ok := queryBool(r, "withRollout"); ok {
		cfg.WithRollout = v
	}

	me := middleware.GetPrincipal(r.Context())
	composed, err := h.console.Issues.FetchIssueByUIDWith(r.Context(), me, chi.URLParam(r, "uid"), chi.URLParam(r, "project"), cfg)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, composed)
}

// CreateByPlan creates a plan, an issue and a rollout in one request.
func (h *IssueHandler) CreateByPlan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateIssueByPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Issue.Title == "" {
		respondError(w, http.StatusBadRequest, "issue title is required")
		return
	}

	project, ok := h.projects.loadProject(w, r, permission.PlansCreate, permission.IssuesCreate, permission.RolloutsCreate)
	if !ok {
		return
	}

	me := middleware.GetPrincipal(r.Context())
	req.Issue.Creator = me.Name
	hooks := &issue.CreateIssueHooks{
		PlanCreated: func(ctx context.Context, plan *domain.Plan) error {
			log.Printf("[Issue] Plan %s created", plan.Name)
			return nil
		},
		RolloutCreated: func(ctx context.Context, _ *domain.Issue, _ *domain.Plan, _ *domain.Rollout) error {
			h.console.PlanRefresher.Refresh()
			return nil
		},
	}

	resp, err := h.console.Issues.CreateIssueByPlan(r.Context(), project, &req.Issue, &req.Plan, hooks)
	if err != nil {
		// Earlier steps are not rolled back; report what exists.
		log.Printf("[Issue] Create by plan failed after plan=%v issue=%v: %v", resp.Plan != nil, resp.Issue != nil, err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}
