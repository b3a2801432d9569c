package backend

import (
	"context"

	"github.com/bcnelson/console-cache/internal/domain"
)

// MaxTaskRunPageSize is the largest page the rollout service accepts for task runs.
const MaxTaskRunPageSize = 1000

// InstanceService defines the remote operations on instances and their data sources.
type InstanceService interface {
	ListInstances(ctx context.Context, showDeleted bool) ([]*domain.Instance, error)
	GetInstance(ctx context.Context, name string) (*domain.Instance, error)
	CreateInstance(ctx context.Context, instance *domain.Instance, instanceID string) (*domain.Instance, error)
	UpdateInstance(ctx context.Context, instance *domain.Instance, updateMask []string) (*domain.Instance, error)
	DeleteInstance(ctx context.Context, name string, force bool) error
	UndeleteInstance(ctx context.Context, name string) (*domain.Instance, error)
	SyncInstance(ctx context.Context, name string) error
	BatchSyncInstances(ctx context.Context, names []string) error
	AddDataSource(ctx context.Context, name string, dataSource domain.DataSource) (*domain.Instance, error)
	UpdateDataSource(ctx context.Context, name string, dataSource domain.DataSource, updateMask []string) (*domain.Instance, error)
	RemoveDataSource(ctx context.Context, name string, dataSource domain.DataSource) (*domain.Instance, error)
}

// EnvironmentService defines the remote operations on environments.
type EnvironmentService interface {
	ListEnvironments(ctx context.Context, showDeleted bool) ([]*domain.Environment, error)
	GetEnvironment(ctx context.Context, name string) (*domain.Environment, error)
}

// ProjectService defines the remote operations on projects.
type ProjectService interface {
	ListProjects(ctx context.Context, showDeleted bool) ([]*domain.Project, error)
	GetProject(ctx context.Context, name string) (*domain.Project, error)
}

// UserService defines the remote operations on users.
type UserService interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	GetUser(ctx context.Context, name string) (*domain.User, error)
}

// IssueService defines the remote operations on issues.
type IssueService interface {
	GetIssue(ctx context.Context, name string) (*domain.Issue, error)
	CreateIssue(ctx context.Context, parent string, issue *domain.Issue) (*domain.Issue, error)
}

// PlanService defines the remote operations on plans and plan check runs.
type PlanService interface {
	GetPlan(ctx context.Context, name string) (*domain.Plan, error)
	CreatePlan(ctx context.Context, parent string, plan *domain.Plan) (*domain.Plan, error)
	ListPlanCheckRuns(ctx context.Context, parent string, latestOnly bool) ([]domain.PlanCheckRun, error)
}

// RolloutService defines the remote operations on rollouts and task runs.
type RolloutService interface {
	GetRollout(ctx context.Context, name string) (*domain.Rollout, error)
	CreateRollout(ctx context.Context, parent string, rollout *domain.Rollout) (*domain.Rollout, error)
	ListTaskRuns(ctx context.Context, parent string, pageSize int) ([]domain.TaskRun, error)
}

// Client is the full backend API surface consumed by the console.
type Client interface {
	InstanceService
	EnvironmentService
	ProjectService
	UserService
	IssueService
	PlanService
	RolloutService
}

// AllTaskRunsParent returns the wildcard parent that spans every stage and task of a rollout.
func AllTaskRunsParent(rollout string) string {
	return rollout + "/stages/-/tasks/-"
}
