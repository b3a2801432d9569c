package store

import (
	"context"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/domain"
)

// ProjectStore mirrors projects.
type ProjectStore struct {
	client backend.ProjectService
	cache  *Cache[domain.Project]
}

// NewProjectStore creates a ProjectStore.
func NewProjectStore(client backend.ProjectService) *ProjectStore {
	return &ProjectStore{
		client: client,
		cache: NewCache("project",
			func(p *domain.Project) string { return p.Name },
			domain.UnknownProject),
	}
}

// Reset clears the store.
func (s *ProjectStore) Reset() { s.cache.Reset() }

// UpsertProjects writes projects into the store.
func (s *ProjectStore) UpsertProjects(list []*domain.Project) []*domain.Project {
	s.cache.Set(list...)
	return list
}

// ListProjects fetches projects and returns the matching view of the whole store.
func (s *ProjectStore) ListProjects(ctx context.Context, showDeleted bool) ([]*domain.Project, error) {
	err := s.cache.ListAll(ctx, ResourceCacheKey("project", activeFilter(showDeleted)), func(ctx context.Context) error {
		list, err := s.client.ListProjects(ctx, showDeleted)
		if err != nil {
			return err
		}
		s.UpsertProjects(list)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ProjectList(showDeleted), nil
}

// ProjectList returns the cached projects, without deleted ones unless asked.
func (s *ProjectStore) ProjectList(showDeleted bool) []*domain.Project {
	var out []*domain.Project
	for _, p := range s.cache.Values() {
		if showDeleted || p.State != domain.StateDeleted {
			out = append(out, p)
		}
	}
	return out
}

// GetProjectByName returns the cached project or the unknown placeholder.
func (s *ProjectStore) GetProjectByName(name string) *domain.Project {
	return s.cache.Get(name)
}

// GetOrFetchProjectByName returns the cached project, fetching it on a miss.
func (s *ProjectStore) GetOrFetchProjectByName(ctx context.Context, name string) (*domain.Project, error) {
	return s.cache.GetOrFetch(ctx, name, func(ctx context.Context) (*domain.Project, error) {
		p, err := s.client.GetProject(ctx, name)
		if err != nil {
			return nil, err
		}
		s.cache.Set(p)
		return p, nil
	})
}
