package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	projectNamePattern  = regexp.MustCompile(`(?:^|/)projects/([^/]+)(?:$|/)`)
	instanceNamePattern = regexp.MustCompile(`(?:^|/)instances/([^/]+)(?:$|/)`)
	userNamePattern     = regexp.MustCompile(`^users/(.+)$`)
	issueNamePattern    = regexp.MustCompile(`(?:^|/)issues/([^/]+)(?:$|/)`)
)

// ExtractProjectResourceName returns the project id embedded in a resource name,
// e.g. "p1" for "projects/p1/issues/5". It returns "" when there is none.
func ExtractProjectResourceName(name string) string {
	return firstMatch(projectNamePattern, name)
}

// ExtractInstanceResourceName returns the instance id embedded in a resource name.
func ExtractInstanceResourceName(name string) string {
	return firstMatch(instanceNamePattern, name)
}

// ExtractUserResourceName returns the email part of "users/{email}".
func ExtractUserResourceName(name string) string {
	return firstMatch(userNamePattern, name)
}

// ExtractIssueUID returns the issue id embedded in a resource name.
func ExtractIssueUID(name string) string {
	return firstMatch(issueNamePattern, name)
}

// ProjectNameOf returns "projects/{id}" for the project that owns the named resource.
func ProjectNameOf(name string) string {
	return "projects/" + ExtractProjectResourceName(name)
}

// UserNameForEmail builds the resource name of the user with the given email.
func UserNameForEmail(email string) string {
	return "users/" + email
}

// IsValidProjectName reports whether name refers to a real project rather than a placeholder.
func IsValidProjectName(name string) bool {
	if !strings.HasPrefix(name, "projects/") {
		return false
	}
	id := ExtractProjectResourceName(name)
	return id != "" && id != fmt.Sprint(EmptyID) && id != fmt.Sprint(UnknownID)
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
