// Package issue composes raw issues with their project, creator, plan and rollout.
package issue

import (
	"context"
	"fmt"
	"log"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/permission"
)

// ProjectResolver resolves projects, fetching on a cache miss.
type ProjectResolver interface {
	GetOrFetchProjectByName(ctx context.Context, name string) (*domain.Project, error)
}

// UserResolver resolves users by email, fetching on a cache miss.
type UserResolver interface {
	GetOrFetchUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Config selects the related entities attached by Compose.
type Config struct {
	WithPlan    bool
	WithRollout bool
}

// DefaultConfig attaches both plan and rollout data.
var DefaultConfig = Config{WithPlan: true, WithRollout: true}

// Composer builds ComposedIssue views.
type Composer struct {
	projects ProjectResolver
	users    UserResolver
	issues   backend.IssueService
	plans    backend.PlanService
	rollouts backend.RolloutService
	oracle   permission.Oracle
	logger   *log.Logger
}

// NewComposer creates a Composer. A nil logger uses the standard logger.
func NewComposer(
	projects ProjectResolver,
	users UserResolver,
	issues backend.IssueService,
	plans backend.PlanService,
	rollouts backend.RolloutService,
	oracle permission.Oracle,
	logger *log.Logger,
) *Composer {
	if logger == nil {
		logger = log.Default()
	}
	return &Composer{
		projects: projects,
		users:    users,
		issues:   issues,
		plans:    plans,
		rollouts: rollouts,
		oracle:   oracle,
		logger:   logger,
	}
}

// Compose attaches project and creator to raw, then plan and rollout data as cfg asks
// and me is permitted to see. A denied permission leaves the field at its empty default
// without any remote call.
func (c *Composer) Compose(ctx context.Context, me *domain.User, raw *domain.Issue, cfg Config) (*domain.ComposedIssue, error) {
	project := domain.ProjectNameOf(raw.Name)
	projectEntity, err := c.projects.GetOrFetchProjectByName(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("resolving project %s: %w", project, err)
	}

	creator := domain.UnknownUser()
	if email := domain.ExtractUserResourceName(raw.Creator); email != "" {
		if u, err := c.users.GetOrFetchUserByEmail(ctx, email); err == nil && u != nil {
			creator = u
		}
	}

	issue := &domain.ComposedIssue{
		Issue:           *raw,
		Project:         project,
		ProjectEntity:   projectEntity,
		CreatorEntity:   creator,
		PlanCheckRuns:   []domain.PlanCheckRun{},
		RolloutEntity:   domain.EmptyRollout(),
		RolloutTaskRuns: []domain.TaskRun{},
	}

	if cfg.WithPlan && issue.Plan != "" {
		if c.oracle.HasProjectPermission(projectEntity, me, permission.PlansGet) {
			plan, err := c.plans.GetPlan(ctx, issue.Plan)
			if err != nil {
				return nil, fmt.Errorf("fetching plan %s: %w", issue.Plan, err)
			}
			issue.PlanEntity = plan
		}
		if c.oracle.HasProjectPermission(projectEntity, me, permission.PlanCheckRunsList) {
			runs, err := c.plans.ListPlanCheckRuns(ctx, issue.Plan, true)
			if err != nil {
				return nil, fmt.Errorf("listing plan check runs of %s: %w", issue.Plan, err)
			}
			if runs != nil {
				issue.PlanCheckRuns = runs
			}
		}
	}

	if cfg.WithRollout && issue.Rollout != "" {
		if c.oracle.HasProjectPermission(projectEntity, me, permission.RolloutsGet) {
			rollout, err := c.rollouts.GetRollout(ctx, issue.Rollout)
			if err != nil {
				return nil, fmt.Errorf("fetching rollout %s: %w", issue.Rollout, err)
			}
			issue.RolloutEntity = rollout
		}
		if c.oracle.HasProjectPermission(projectEntity, me, permission.TaskRunsList) {
			runs, err := c.rollouts.ListTaskRuns(ctx, backend.AllTaskRunsParent(issue.Rollout), backend.MaxTaskRunPageSize)
			if err != nil {
				return nil, fmt.Errorf("listing task runs of %s: %w", issue.Rollout, err)
			}
			if runs != nil {
				issue.RolloutTaskRuns = runs
			}
		}
	}

	return issue, nil
}

// ShallowCompose attaches only project and creator unless cfg asks for more.
func (c *Composer) ShallowCompose(ctx context.Context, me *domain.User, raw *domain.Issue, cfg *Config) (*domain.ComposedIssue, error) {
	effective := Config{}
	if cfg != nil {
		effective = *cfg
	}
	return c.Compose(ctx, me, raw, effective)
}

// FetchIssueByUID fetches and composes issue uid of project. An empty project matches
// any project. The placeholder uids return placeholder issues without a remote call.
func (c *Composer) FetchIssueByUID(ctx context.Context, me *domain.User, uid, project string) (*domain.ComposedIssue, error) {
	return c.FetchIssueByUIDWith(ctx, me, uid, project, DefaultConfig)
}

// FetchIssueByUIDWith is FetchIssueByUID with an explicit composition config.
func (c *Composer) FetchIssueByUIDWith(ctx context.Context, me *domain.User, uid, project string, cfg Config) (*domain.ComposedIssue, error) {
	switch uid {
	case "undefined":
		c.logger.Printf("[Issue] Undefined issue uid")
		return domain.UnknownIssue(), nil
	case fmt.Sprint(domain.EmptyID):
		return domain.EmptyIssue(), nil
	case fmt.Sprint(domain.UnknownID):
		return domain.UnknownIssue(), nil
	}
	if project == "" {
		project = "-"
	}
	return c.fetch(ctx, me, fmt.Sprintf("projects/%s/issues/%s", project, uid), cfg)
}

// FetchIssueByName fetches and composes the named issue.
func (c *Composer) FetchIssueByName(ctx context.Context, me *domain.User, name string) (*domain.ComposedIssue, error) {
	switch name {
	case domain.EmptyIssueName:
		return domain.EmptyIssue(), nil
	case domain.UnknownIssueName:
		return domain.UnknownIssue(), nil
	}
	return c.fetch(ctx, me, name, DefaultConfig)
}

func (c *Composer) fetch(ctx context.Context, me *domain.User, name string, cfg Config) (*domain.ComposedIssue, error) {
	raw, err := c.issues.GetIssue(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.Compose(ctx, me, raw, cfg)
}
