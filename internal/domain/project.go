package domain

// Binding grants a role to a set of members ("users/{email}" or "allUsers").
type Binding struct {
	Role    string   `json:"role"`
	Members []string `json:"members"`
}

// IAMPolicy is the project-level access policy.
type IAMPolicy struct {
	Bindings []Binding `json:"bindings,omitempty"`
}

// Project owns databases, issues, plans and rollouts.
// Name format: "projects/{project}".
type Project struct {
	Name      string    `json:"name"`
	UID       string    `json:"uid"`
	Title     string    `json:"title"`
	Key       string    `json:"key"`
	State     State     `json:"state"`
	IAMPolicy IAMPolicy `json:"iamPolicy"`
}

// User is a workspace principal.
// Name format: "users/{email}".
type User struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Title string   `json:"title"`
	State State    `json:"state"`
	Roles []string `json:"roles,omitempty"`
}
