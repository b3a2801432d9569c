// Package recent keeps the per-principal list of recently viewed projects.
package recent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/permission"
	"github.com/bcnelson/console-cache/internal/storage"
)

// MaxRecentProjects bounds the persisted list.
const MaxRecentProjects = 5

// KeyPrefix prefixes the storage key of every principal's list.
const KeyPrefix = "bb.project.recent-view."

// ProjectLookup resolves a project name from the local cache without fetching.
type ProjectLookup interface {
	GetProjectByName(name string) *domain.Project
}

// Projects tracks recently viewed project names, most recent first.
type Projects struct {
	kv       storage.Storage
	projects ProjectLookup
	oracle   permission.Oracle

	// Serializes read-modify-write of a principal's list.
	mu sync.Mutex
}

// NewProjects creates a recency list backed by kv.
func NewProjects(kv storage.Storage, projects ProjectLookup, oracle permission.Oracle) *Projects {
	return &Projects{kv: kv, projects: projects, oracle: oracle}
}

// Key returns the storage key for a principal's list.
func Key(user *domain.User) string {
	return KeyPrefix + user.Name
}

// Record moves name to the front of the principal's list. Empty names are ignored.
func (p *Projects) Record(ctx context.Context, user *domain.User, name string) error {
	if name == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	names, err := p.load(ctx, user)
	if err != nil {
		return err
	}
	return p.save(ctx, user, Push(names, name, MaxRecentProjects))
}

// Names returns the persisted list for the principal.
func (p *Projects) Names(ctx context.Context, user *domain.User) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load(ctx, user)
}

// Clear forgets the principal's list. Clearing an empty list is not an error.
func (p *Projects) Clear(ctx context.Context, user *domain.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.kv.Delete(ctx, Key(user)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("clearing recent projects: %w", err)
	}
	return nil
}

// Projects maps the persisted names onto cached projects, hiding entries that are no
// longer valid or viewable. The persisted list is left untouched.
func (p *Projects) Projects(ctx context.Context, user *domain.User) ([]*domain.Project, error) {
	names, err := p.Names(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Project, 0, len(names))
	for _, name := range names {
		project := p.projects.GetProjectByName(name)
		if !domain.IsValidProjectName(project.Name) {
			continue
		}
		if !p.oracle.HasProjectPermission(project, user, permission.ProjectsGet) {
			continue
		}
		out = append(out, project)
	}
	return out, nil
}

// Push returns list with name moved or inserted at the front, truncated to limit.
func Push(list []string, name string, limit int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, name)
	for _, existing := range list {
		if existing != name {
			out = append(out, existing)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (p *Projects) load(ctx context.Context, user *domain.User) ([]string, error) {
	data, err := p.kv.Get(ctx, Key(user))
	if errors.Is(err, domain.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading recent projects: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		// A corrupt mirror behaves like an empty one.
		return []string{}, nil
	}
	return slices.DeleteFunc(names, func(s string) bool { return s == "" }), nil
}

func (p *Projects) save(ctx context.Context, user *domain.User, names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	if err := p.kv.Set(ctx, Key(user), data); err != nil {
		return fmt.Errorf("saving recent projects: %w", err)
	}
	return nil
}
