package permission_test

import (
	"testing"

	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/permission"
)

func TestChecker_HasProjectPermission(t *testing.T) {
	project := &domain.Project{
		Name: "projects/p1",
		IAMPolicy: domain.IAMPolicy{Bindings: []domain.Binding{
			{Role: permission.RoleProjectDeveloper, Members: []string{"users/dev@example.com"}},
			{Role: permission.RoleProjectViewer, Members: []string{permission.AllUsers}},
		}},
	}
	admin := &domain.User{Name: "users/admin@example.com", Email: "admin@example.com", Roles: []string{permission.RoleWorkspaceAdmin}}
	dev := &domain.User{Name: "users/dev@example.com", Email: "dev@example.com", Roles: []string{permission.RoleWorkspaceMember}}
	guest := &domain.User{Name: "users/guest@example.com", Email: "guest@example.com"}
	deleted := &domain.User{Name: "users/gone@example.com", Email: "gone@example.com", State: domain.StateDeleted, Roles: []string{permission.RoleWorkspaceAdmin}}

	checker := permission.NewChecker(nil)

	tests := []struct {
		name       string
		user       *domain.User
		permission string
		want       bool
	}{
		{"admin has everything", admin, permission.TaskRunsList, true},
		{"developer can list task runs", dev, permission.TaskRunsList, true},
		{"developer cannot create rollouts", dev, permission.RolloutsCreate, false},
		{"all users can view", guest, permission.PlansGet, true},
		{"all users cannot list check runs", guest, permission.PlanCheckRunsList, false},
		{"deleted user denied", deleted, permission.ProjectsGet, false},
		{"nil user denied", nil, permission.ProjectsGet, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.HasProjectPermission(project, tt.user, tt.permission); got != tt.want {
				t.Errorf("HasProjectPermission(%s) = %v, want %v", tt.permission, got, tt.want)
			}
		})
	}
}

func TestChecker_NilProjectUsesWorkspaceRolesOnly(t *testing.T) {
	checker := permission.NewChecker(nil)
	dba := &domain.User{Name: "users/dba@example.com", Roles: []string{permission.RoleWorkspaceDBA}}
	member := &domain.User{Name: "users/m@example.com", Roles: []string{permission.RoleWorkspaceMember}}

	if !checker.HasProjectPermission(nil, dba, permission.InstancesSync) {
		t.Error("Expected DBA to sync instances")
	}
	if checker.HasProjectPermission(nil, member, permission.ProjectsGet) {
		t.Error("Expected member without binding to be denied")
	}
}
