package backend_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/domain"
)

func TestFileShim_MissingFileIsEmpty(t *testing.T) {
	shim, err := backend.NewFileShim(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewFileShim failed: %v", err)
	}
	list, err := shim.ListInstances(context.Background(), true)
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected no instances, got %d", len(list))
	}
}

func TestFileShim_PersistsMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	shim, err := backend.NewFileShim(path)
	if err != nil {
		t.Fatalf("NewFileShim failed: %v", err)
	}
	ctx := context.Background()

	if _, err := shim.CreateInstance(ctx, &domain.Instance{Title: "Prod"}, "prod"); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected fixture file to be written: %v", err)
	}

	reloaded, err := backend.NewFileShim(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	ins, err := reloaded.GetInstance(ctx, "instances/prod")
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if ins.State != domain.StateActive {
		t.Errorf("Expected ACTIVE, got %s", ins.State)
	}
}

func TestFileShim_FailureInjection(t *testing.T) {
	shim := backend.NewShim(backend.Fixture{})
	boom := errors.New("boom")
	shim.Fail("GetProject", boom)

	if _, err := shim.GetProject(context.Background(), "projects/p1"); !errors.Is(err, boom) {
		t.Fatalf("Expected injected error, got %v", err)
	}
	if shim.Calls("GetProject") != 1 {
		t.Errorf("Expected 1 call, got %d", shim.Calls("GetProject"))
	}
}

func TestFileShim_LatestPlanCheckRuns(t *testing.T) {
	now := time.Now()
	plan := "projects/p1/plans/1"
	shim := backend.NewShim(backend.Fixture{
		PlanCheckRuns: map[string][]domain.PlanCheckRun{
			plan: {
				{Name: plan + "/planCheckRuns/1", Type: "LINT", Target: "db1", CreateTime: now.Add(-time.Hour)},
				{Name: plan + "/planCheckRuns/2", Type: "LINT", Target: "db1", CreateTime: now},
				{Name: plan + "/planCheckRuns/3", Type: "CONNECT", Target: "db1", CreateTime: now},
			},
		},
	})

	all, _ := shim.ListPlanCheckRuns(context.Background(), plan, false)
	latest, _ := shim.ListPlanCheckRuns(context.Background(), plan, true)
	if len(all) != 3 {
		t.Errorf("Expected 3 runs, got %d", len(all))
	}
	if len(latest) != 2 {
		t.Fatalf("Expected 2 latest runs, got %d", len(latest))
	}
	for _, run := range latest {
		if run.Name == plan+"/planCheckRuns/1" {
			t.Error("Expected superseded run to be dropped")
		}
	}
}

func TestFileShim_GetIssueAnyProject(t *testing.T) {
	shim := backend.NewShim(backend.Fixture{
		Issues: []*domain.Issue{{Name: "projects/p1/issues/42", UID: "42"}},
	})
	issue, err := shim.GetIssue(context.Background(), "projects/-/issues/42")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if issue.Name != "projects/p1/issues/42" {
		t.Errorf("Unexpected issue %s", issue.Name)
	}
}
