package domain

import "time"

// IssueStatus is the workflow status of an issue.
type IssueStatus string

const (
	IssueStatusOpen     IssueStatus = "OPEN"
	IssueStatusDone     IssueStatus = "DONE"
	IssueStatusCanceled IssueStatus = "CANCELED"
)

// Issue is a change request inside a project.
// Name format: "projects/{project}/issues/{uid}".
type Issue struct {
	Name        string      `json:"name"`
	UID         string      `json:"uid"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        string      `json:"type,omitempty"`
	Status      IssueStatus `json:"status"`
	Creator     string      `json:"creator"`
	Plan        string      `json:"plan,omitempty"`
	Rollout     string      `json:"rollout,omitempty"`
	CreateTime  time.Time   `json:"createTime"`
	UpdateTime  time.Time   `json:"updateTime"`
}

// Plan describes the set of changes an issue will apply.
// Name format: "projects/{project}/plans/{plan}".
type Plan struct {
	Name        string     `json:"name"`
	UID         string     `json:"uid"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Steps       []PlanStep `json:"steps,omitempty"`
}

// PlanStep is one ordered group of specs within a plan.
type PlanStep struct {
	Title string     `json:"title,omitempty"`
	Specs []PlanSpec `json:"specs,omitempty"`
}

// PlanSpec is a single change targeting a database.
type PlanSpec struct {
	ID     string `json:"id"`
	Target string `json:"target"`
	Sheet  string `json:"sheet,omitempty"`
}

// PlanCheckRun is the result of running checks against a plan.
type PlanCheckRun struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Target     string    `json:"target"`
	CreateTime time.Time `json:"createTime"`
}

// Rollout is the staged execution of a plan.
// Name format: "projects/{project}/rollouts/{rollout}".
type Rollout struct {
	Name   string  `json:"name"`
	UID    string  `json:"uid"`
	Title  string  `json:"title"`
	Plan   string  `json:"plan"`
	Stages []Stage `json:"stages,omitempty"`
}

// Stage groups the tasks of a rollout for one environment.
type Stage struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Environment string `json:"environment,omitempty"`
	Tasks       []Task `json:"tasks,omitempty"`
}

// Task is a single unit of work in a stage.
type Task struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Target string `json:"target"`
	Status string `json:"status"`
}

// TaskRun is one execution attempt of a task.
type TaskRun struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	Creator    string    `json:"creator,omitempty"`
	CreateTime time.Time `json:"createTime"`
}

// ComposedIssue is an issue decorated with its related entities for display.
// PlanEntity stays nil and the lists stay empty when the caller may not view them.
type ComposedIssue struct {
	Issue
	Project         string         `json:"project"`
	ProjectEntity   *Project       `json:"projectEntity"`
	CreatorEntity   *User          `json:"creatorEntity"`
	PlanEntity      *Plan          `json:"planEntity"`
	PlanCheckRuns   []PlanCheckRun `json:"planCheckRunList"`
	RolloutEntity   *Rollout       `json:"rolloutEntity"`
	RolloutTaskRuns []TaskRun      `json:"rolloutTaskRunList"`
}

// CreateIssueByPlanRequest is the request body for the plan/issue/rollout creation flow.
type CreateIssueByPlanRequest struct {
	Issue Issue `json:"issue"`
	Plan  Plan  `json:"plan"`
}

// CreateIssueByPlanResponse reports every resource the creation flow produced.
type CreateIssueByPlanResponse struct {
	Plan    *Plan    `json:"createdPlan"`
	Issue   *Issue   `json:"createdIssue"`
	Rollout *Rollout `json:"createdRollout"`
}
