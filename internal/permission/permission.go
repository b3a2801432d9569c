// Package permission answers whether a principal may perform an action on a project.
//
// The oracle is a pure policy function: it never fetches anything and has no side
// effects. Callers consult it before issuing an optional remote call and leave the
// related field at its default value when the answer is no.
package permission

import (
	"slices"

	"github.com/bcnelson/console-cache/internal/domain"
)

// Permissions consulted by the console.
const (
	ProjectsGet       = "bb.projects.get"
	IssuesGet         = "bb.issues.get"
	IssuesCreate      = "bb.issues.create"
	PlansGet          = "bb.plans.get"
	PlansCreate       = "bb.plans.create"
	PlanCheckRunsList = "bb.planCheckRuns.list"
	RolloutsGet       = "bb.rollouts.get"
	RolloutsCreate    = "bb.rollouts.create"
	TaskRunsList      = "bb.taskRuns.list"
	InstancesList     = "bb.instances.list"
	InstancesGet      = "bb.instances.get"
	InstancesCreate   = "bb.instances.create"
	InstancesUpdate   = "bb.instances.update"
	InstancesDelete   = "bb.instances.delete"
	InstancesUndelete = "bb.instances.undelete"
	InstancesSync     = "bb.instances.sync"
)

// Roles known to the built-in role table.
const (
	RoleWorkspaceAdmin   = "roles/workspaceAdmin"
	RoleWorkspaceDBA     = "roles/workspaceDBA"
	RoleWorkspaceMember  = "roles/workspaceMember"
	RoleProjectOwner     = "roles/projectOwner"
	RoleProjectDeveloper = "roles/projectDeveloper"
	RoleProjectViewer    = "roles/projectViewer"
)

// AllUsers is the binding member that matches every principal.
const AllUsers = "allUsers"

var projectPermissions = []string{
	ProjectsGet, IssuesGet, IssuesCreate, PlansGet, PlansCreate,
	PlanCheckRunsList, RolloutsGet, RolloutsCreate, TaskRunsList,
}

var instancePermissions = []string{
	InstancesList, InstancesGet, InstancesCreate, InstancesUpdate,
	InstancesDelete, InstancesUndelete, InstancesSync,
}

// DefaultRoles maps each built-in role to the permissions it carries.
var DefaultRoles = map[string][]string{
	RoleWorkspaceAdmin:   slices.Concat(projectPermissions, instancePermissions),
	RoleWorkspaceDBA:     slices.Concat(projectPermissions, instancePermissions),
	RoleWorkspaceMember:  {InstancesList, InstancesGet},
	RoleProjectOwner:     projectPermissions,
	RoleProjectDeveloper: {ProjectsGet, IssuesGet, IssuesCreate, PlansGet, PlansCreate, PlanCheckRunsList, RolloutsGet, TaskRunsList},
	RoleProjectViewer:    {ProjectsGet, IssuesGet, PlansGet, RolloutsGet},
}

// Oracle decides whether user holds permission on project.
type Oracle interface {
	HasProjectPermission(project *domain.Project, user *domain.User, permission string) bool
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(project *domain.Project, user *domain.User, permission string) bool

// HasProjectPermission calls f.
func (f OracleFunc) HasProjectPermission(project *domain.Project, user *domain.User, permission string) bool {
	return f(project, user, permission)
}

// Checker evaluates workspace roles and project IAM bindings against a role table.
type Checker struct {
	roles map[string][]string
}

// Ensure Checker implements Oracle.
var _ Oracle = (*Checker)(nil)

// NewChecker creates a Checker. A nil table selects DefaultRoles.
func NewChecker(roles map[string][]string) *Checker {
	if roles == nil {
		roles = DefaultRoles
	}
	return &Checker{roles: roles}
}

// HasProjectPermission reports whether user may perform permission on project.
// Workspace roles apply to every project; project bindings apply only to their project.
func (c *Checker) HasProjectPermission(project *domain.Project, user *domain.User, permission string) bool {
	if user == nil || user.State == domain.StateDeleted {
		return false
	}
	for _, role := range user.Roles {
		if c.roleHas(role, permission) {
			return true
		}
	}
	if project == nil {
		return false
	}
	for _, binding := range project.IAMPolicy.Bindings {
		if !c.roleHas(binding.Role, permission) {
			continue
		}
		for _, member := range binding.Members {
			if member == AllUsers || member == user.Name || member == domain.UserNameForEmail(user.Email) {
				return true
			}
		}
	}
	return false
}

func (c *Checker) roleHas(role, permission string) bool {
	return slices.Contains(c.roles[role], permission)
}
