package issue_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/issue"
	"github.com/bcnelson/console-cache/internal/permission"
	"github.com/bcnelson/console-cache/internal/store"
)

var me = &domain.User{Name: "users/me@example.com", Email: "me@example.com", State: domain.StateActive}

func fixture() backend.Fixture {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return backend.Fixture{
		Projects: []*domain.Project{{Name: "projects/p1", UID: "1", Title: "P1", State: domain.StateActive}},
		Users:    []*domain.User{{Name: "users/alice@example.com", Email: "alice@example.com", State: domain.StateActive}},
		Issues: []*domain.Issue{{
			Name:    "projects/p1/issues/42",
			UID:     "42",
			Creator: "users/alice@example.com",
			Plan:    "projects/p1/plans/7",
			Rollout: "projects/p1/rollouts/9",
		}},
		Plans:    []*domain.Plan{{Name: "projects/p1/plans/7", UID: "7"}},
		Rollouts: []*domain.Rollout{{Name: "projects/p1/rollouts/9", UID: "9", Plan: "projects/p1/plans/7"}},
		PlanCheckRuns: map[string][]domain.PlanCheckRun{
			"projects/p1/plans/7": {
				{Name: "projects/p1/plans/7/planCheckRuns/1", Type: "LINT", Target: "db1", CreateTime: t0},
				{Name: "projects/p1/plans/7/planCheckRuns/2", Type: "LINT", Target: "db1", CreateTime: t0.Add(time.Hour)},
			},
		},
		TaskRuns: map[string][]domain.TaskRun{
			"projects/p1/rollouts/9": {{Name: "projects/p1/rollouts/9/stages/1/tasks/1/taskRuns/1"}},
		},
	}
}

func grant(perms ...string) permission.Oracle {
	return permission.OracleFunc(func(p *domain.Project, u *domain.User, perm string) bool {
		return slices.Contains(perms, perm)
	})
}

func newComposer(shim *backend.FileShim, oracle permission.Oracle, logger *log.Logger) *issue.Composer {
	return issue.NewComposer(store.NewProjectStore(shim), store.NewUserStore(shim), shim, shim, shim, oracle, logger)
}

func rawIssue(t *testing.T, shim *backend.FileShim) *domain.Issue {
	t.Helper()
	raw, err := shim.GetIssue(context.Background(), "projects/p1/issues/42")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	return raw
}

func TestCompose_AllPermissions(t *testing.T) {
	shim := backend.NewShim(fixture())
	c := newComposer(shim, grant(permission.PlansGet, permission.PlanCheckRunsList, permission.RolloutsGet, permission.TaskRunsList), nil)

	got, err := c.Compose(context.Background(), me, rawIssue(t, shim), issue.DefaultConfig)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if got.Project != "projects/p1" || got.ProjectEntity.Title != "P1" {
		t.Errorf("Expected project projects/p1, got %s (%s)", got.Project, got.ProjectEntity.Title)
	}
	if got.CreatorEntity.Email != "alice@example.com" {
		t.Errorf("Expected creator alice, got %s", got.CreatorEntity.Name)
	}
	if got.PlanEntity == nil || got.PlanEntity.Name != "projects/p1/plans/7" {
		t.Errorf("Expected plan to be attached, got %v", got.PlanEntity)
	}
	if len(got.PlanCheckRuns) != 1 || got.PlanCheckRuns[0].Name != "projects/p1/plans/7/planCheckRuns/2" {
		t.Errorf("Expected only the latest plan check run, got %v", got.PlanCheckRuns)
	}
	if got.RolloutEntity.Name != "projects/p1/rollouts/9" {
		t.Errorf("Expected rollout to be attached, got %s", got.RolloutEntity.Name)
	}
	if len(got.RolloutTaskRuns) != 1 {
		t.Errorf("Expected 1 task run, got %d", len(got.RolloutTaskRuns))
	}
}

func TestCompose_DeniedPermissionSkipsFetch(t *testing.T) {
	shim := backend.NewShim(fixture())
	c := newComposer(shim, grant(), nil)

	got, err := c.Compose(context.Background(), me, rawIssue(t, shim), issue.DefaultConfig)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if got.PlanEntity != nil {
		t.Errorf("Expected no plan, got %v", got.PlanEntity)
	}
	if got.PlanCheckRuns == nil || len(got.PlanCheckRuns) != 0 {
		t.Errorf("Expected empty plan check runs, got %v", got.PlanCheckRuns)
	}
	if got.RolloutEntity == nil || got.RolloutEntity.Name != domain.EmptyRolloutName {
		t.Errorf("Expected empty rollout placeholder, got %v", got.RolloutEntity)
	}
	if got.RolloutTaskRuns == nil || len(got.RolloutTaskRuns) != 0 {
		t.Errorf("Expected empty task runs, got %v", got.RolloutTaskRuns)
	}
	for _, method := range []string{"GetPlan", "ListPlanCheckRuns", "GetRollout", "ListTaskRuns"} {
		if n := shim.Calls(method); n != 0 {
			t.Errorf("Expected no %s calls, got %d", method, n)
		}
	}
}

func TestCompose_PermissionsAreIndependent(t *testing.T) {
	shim := backend.NewShim(fixture())
	c := newComposer(shim, grant(permission.PlanCheckRunsList, permission.RolloutsGet), nil)

	got, err := c.Compose(context.Background(), me, rawIssue(t, shim), issue.DefaultConfig)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if got.PlanEntity != nil {
		t.Error("Expected plan to be hidden")
	}
	if len(got.PlanCheckRuns) != 1 {
		t.Errorf("Expected plan check runs, got %v", got.PlanCheckRuns)
	}
	if got.RolloutEntity.Name != "projects/p1/rollouts/9" {
		t.Errorf("Expected rollout, got %s", got.RolloutEntity.Name)
	}
	if shim.Calls("ListTaskRuns") != 0 {
		t.Error("Expected no task run fetch")
	}
}

func TestShallowCompose_SkipsPlanAndRollout(t *testing.T) {
	shim := backend.NewShim(fixture())
	c := newComposer(shim, grant(permission.PlansGet, permission.RolloutsGet), nil)

	got, err := c.ShallowCompose(context.Background(), me, rawIssue(t, shim), nil)
	if err != nil {
		t.Fatalf("ShallowCompose failed: %v", err)
	}
	if got.PlanEntity != nil || got.RolloutEntity.Name != domain.EmptyRolloutName {
		t.Error("Expected plan and rollout to be left at defaults")
	}
	if shim.Calls("GetPlan")+shim.Calls("GetRollout") != 0 {
		t.Error("Expected no plan or rollout fetch")
	}

	got, err = c.ShallowCompose(context.Background(), me, rawIssue(t, shim), &issue.Config{WithPlan: true})
	if err != nil {
		t.Fatalf("ShallowCompose failed: %v", err)
	}
	if got.PlanEntity == nil {
		t.Error("Expected plan when explicitly requested")
	}
}

func TestCompose_UnknownCreatorFallsBack(t *testing.T) {
	shim := backend.NewShim(fixture())
	c := newComposer(shim, grant(), nil)
	raw := rawIssue(t, shim)
	raw.Creator = "users/ghost@example.com"

	got, err := c.Compose(context.Background(), me, raw, issue.Config{})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if got.CreatorEntity.Name != domain.UnknownUserName {
		t.Errorf("Expected unknown user, got %s", got.CreatorEntity.Name)
	}
}

func TestCompose_MissingCreatorSkipsUserFetch(t *testing.T) {
	for _, creator := range []string{"", "bots/deployer"} {
		shim := backend.NewShim(fixture())
		c := newComposer(shim, grant(), nil)
		raw := rawIssue(t, shim)
		raw.Creator = creator

		got, err := c.Compose(context.Background(), me, raw, issue.Config{})
		if err != nil {
			t.Fatalf("Compose failed: %v", err)
		}
		if got.CreatorEntity.Name != domain.UnknownUserName {
			t.Errorf("Expected unknown user for creator %q, got %s", creator, got.CreatorEntity.Name)
		}
		if n := shim.Calls("GetUser"); n != 0 {
			t.Errorf("Expected no user fetch for creator %q, got %d", creator, n)
		}
	}
}

func TestCompose_RemoteFailurePropagates(t *testing.T) {
	shim := backend.NewShim(fixture())
	boom := errors.New("boom")
	shim.Fail("GetPlan", boom)
	c := newComposer(shim, grant(permission.PlansGet), nil)

	if _, err := c.Compose(context.Background(), me, rawIssue(t, shim), issue.DefaultConfig); !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}

func TestFetchIssueByUID_Placeholders(t *testing.T) {
	shim := backend.NewShim(fixture())
	var buf bytes.Buffer
	c := newComposer(shim, grant(), log.New(&buf, "", 0))
	ctx := context.Background()

	tests := []struct {
		uid  string
		want string
	}{
		{"undefined", domain.UnknownIssueName},
		{"0", domain.EmptyIssueName},
		{"-1", domain.UnknownIssueName},
	}
	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			got, err := c.FetchIssueByUID(ctx, me, tt.uid, "")
			if err != nil {
				t.Fatalf("FetchIssueByUID failed: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got.Name)
			}
		})
	}
	if shim.Calls("GetIssue") != 0 {
		t.Errorf("Expected no remote issue fetch, got %d", shim.Calls("GetIssue"))
	}
	if !strings.Contains(buf.String(), "Undefined issue uid") {
		t.Errorf("Expected a warning for the undefined uid, got %q", buf.String())
	}
}

func TestFetchIssueByUID_AnyProject(t *testing.T) {
	shim := backend.NewShim(fixture())
	c := newComposer(shim, grant(permission.PlansGet), nil)

	got, err := c.FetchIssueByUID(context.Background(), me, "42", "")
	if err != nil {
		t.Fatalf("FetchIssueByUID failed: %v", err)
	}
	if got.Name != "projects/p1/issues/42" || got.PlanEntity == nil {
		t.Errorf("Expected composed issue 42 with plan, got %s", got.Name)
	}
}

func TestFetchIssueByName(t *testing.T) {
	shim := backend.NewShim(fixture())
	c := newComposer(shim, grant(), nil)
	ctx := context.Background()

	if got, _ := c.FetchIssueByName(ctx, me, domain.EmptyIssueName); got.Name != domain.EmptyIssueName {
		t.Errorf("Expected empty issue, got %s", got.Name)
	}
	if _, err := c.FetchIssueByName(ctx, me, "projects/p1/issues/404"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
