package domain

import "fmt"

// Well-known ids used by placeholder entities.
const (
	EmptyID   = 0
	UnknownID = -1
)

// Well-known resource names of placeholder entities.
var (
	UnknownInstanceName    = fmt.Sprintf("instances/%d", UnknownID)
	UnknownEnvironmentName = fmt.Sprintf("environments/%d", UnknownID)
	UnknownProjectName     = fmt.Sprintf("projects/%d", UnknownID)
	EmptyProjectName       = fmt.Sprintf("projects/%d", EmptyID)
	UnknownUserName        = fmt.Sprintf("users/%d", UnknownID)
	UnknownIssueName       = fmt.Sprintf("%s/issues/%d", UnknownProjectName, UnknownID)
	EmptyIssueName         = fmt.Sprintf("%s/issues/%d", EmptyProjectName, EmptyID)
	EmptyRolloutName       = fmt.Sprintf("%s/rollouts/%d", EmptyProjectName, EmptyID)
)

// UnknownEnvironment returns the placeholder for an unresolvable environment.
func UnknownEnvironment() *Environment {
	return &Environment{
		Name:  UnknownEnvironmentName,
		UID:   fmt.Sprint(UnknownID),
		Title: "<<Unknown environment>>",
		State: StateActive,
	}
}

// UnknownInstance returns the placeholder for an instance missing from the cache.
func UnknownInstance() *ComposedInstance {
	return &ComposedInstance{
		Instance: Instance{
			Name:        UnknownInstanceName,
			UID:         fmt.Sprint(UnknownID),
			Title:       "<<Unknown instance>>",
			Environment: UnknownEnvironmentName,
			State:       StateActive,
		},
		EnvironmentEntity: UnknownEnvironment(),
	}
}

// UnknownProject returns the placeholder for a project missing from the cache.
func UnknownProject() *Project {
	return &Project{
		Name:  UnknownProjectName,
		UID:   fmt.Sprint(UnknownID),
		Title: "<<Unknown project>>",
		State: StateActive,
	}
}

// UnknownUser returns the placeholder for an unresolvable principal.
func UnknownUser() *User {
	return &User{
		Name:  UnknownUserName,
		Title: "<<Unknown user>>",
		State: StateActive,
	}
}

// EmptyIssue returns the placeholder for an issue that has not been created yet.
func EmptyIssue() *ComposedIssue {
	return placeholderIssue(EmptyIssueName, EmptyProjectName, EmptyID)
}

// UnknownIssue returns the placeholder for an issue that could not be resolved.
func UnknownIssue() *ComposedIssue {
	return placeholderIssue(UnknownIssueName, UnknownProjectName, UnknownID)
}

// EmptyRollout returns the placeholder used when a rollout is absent or hidden.
func EmptyRollout() *Rollout {
	return &Rollout{
		Name: EmptyRolloutName,
		UID:  fmt.Sprint(EmptyID),
	}
}

func placeholderIssue(name, project string, id int) *ComposedIssue {
	p := UnknownProject()
	if id == EmptyID {
		p.Name = EmptyProjectName
		p.UID = fmt.Sprint(EmptyID)
	}
	return &ComposedIssue{
		Issue: Issue{
			Name:   name,
			UID:    fmt.Sprint(id),
			Status: IssueStatusOpen,
		},
		Project:         project,
		ProjectEntity:   p,
		CreatorEntity:   UnknownUser(),
		PlanCheckRuns:   []PlanCheckRun{},
		RolloutEntity:   EmptyRollout(),
		RolloutTaskRuns: []TaskRun{},
	}
}
