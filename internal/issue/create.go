package issue

import (
	"context"
	"fmt"

	"github.com/bcnelson/console-cache/internal/domain"
)

// CreateIssueHooks are notified as each step of CreateIssueByPlan completes.
// A hook error stops the remaining steps.
type CreateIssueHooks struct {
	PlanCreated    func(ctx context.Context, plan *domain.Plan) error
	IssueCreated   func(ctx context.Context, issue *domain.Issue, plan *domain.Plan) error
	RolloutCreated func(ctx context.Context, issue *domain.Issue, plan *domain.Plan, rollout *domain.Rollout) error
}

// CreateIssueByPlan creates a plan, an issue that references it and a rollout of the
// plan, in that order. Steps already completed are not undone when a later one fails;
// the returned response holds whatever was created.
func (c *Composer) CreateIssueByPlan(
	ctx context.Context,
	project *domain.Project,
	issue *domain.Issue,
	plan *domain.Plan,
	hooks *CreateIssueHooks,
) (*domain.CreateIssueByPlanResponse, error) {
	if hooks == nil {
		hooks = &CreateIssueHooks{}
	}
	resp := &domain.CreateIssueByPlanResponse{}

	createdPlan, err := c.plans.CreatePlan(ctx, project.Name, plan)
	if err != nil {
		return resp, fmt.Errorf("creating plan: %w", err)
	}
	resp.Plan = createdPlan
	if hooks.PlanCreated != nil {
		if err := hooks.PlanCreated(ctx, createdPlan); err != nil {
			return resp, err
		}
	}

	issueCreate := *issue
	issueCreate.Plan = createdPlan.Name
	createdIssue, err := c.issues.CreateIssue(ctx, project.Name, &issueCreate)
	if err != nil {
		return resp, fmt.Errorf("creating issue: %w", err)
	}
	resp.Issue = createdIssue
	if hooks.IssueCreated != nil {
		if err := hooks.IssueCreated(ctx, createdIssue, createdPlan); err != nil {
			return resp, err
		}
	}

	createdRollout, err := c.rollouts.CreateRollout(ctx, project.Name, &domain.Rollout{Plan: createdPlan.Name})
	if err != nil {
		return resp, fmt.Errorf("creating rollout: %w", err)
	}
	resp.Rollout = createdRollout
	createdIssue.Rollout = createdRollout.Name
	if hooks.RolloutCreated != nil {
		if err := hooks.RolloutCreated(ctx, createdIssue, createdPlan, createdRollout); err != nil {
			return resp, err
		}
	}

	c.logger.Printf("[Issue] Created %s with plan %s and rollout %s", createdIssue.Name, createdPlan.Name, createdRollout.Name)
	return resp, nil
}
