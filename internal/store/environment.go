package store

import (
	"context"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/domain"
)

// EnvironmentStore mirrors environments.
type EnvironmentStore struct {
	client backend.EnvironmentService
	cache  *Cache[domain.Environment]
}

// NewEnvironmentStore creates an EnvironmentStore.
func NewEnvironmentStore(client backend.EnvironmentService) *EnvironmentStore {
	return &EnvironmentStore{
		client: client,
		cache: NewCache("environment",
			func(e *domain.Environment) string { return e.Name },
			domain.UnknownEnvironment),
	}
}

// Reset clears the store.
func (s *EnvironmentStore) Reset() { s.cache.Reset() }

// UpsertEnvironments writes environments into the store.
func (s *EnvironmentStore) UpsertEnvironments(list []*domain.Environment) []*domain.Environment {
	s.cache.Set(list...)
	return list
}

// ListEnvironments fetches environments and returns the matching view of the whole store.
func (s *EnvironmentStore) ListEnvironments(ctx context.Context, showDeleted bool) ([]*domain.Environment, error) {
	err := s.cache.ListAll(ctx, ResourceCacheKey("environment", activeFilter(showDeleted)), func(ctx context.Context) error {
		list, err := s.client.ListEnvironments(ctx, showDeleted)
		if err != nil {
			return err
		}
		s.UpsertEnvironments(list)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.EnvironmentList(showDeleted), nil
}

// EnvironmentList returns the cached environments, without deleted ones unless asked.
func (s *EnvironmentStore) EnvironmentList(showDeleted bool) []*domain.Environment {
	var out []*domain.Environment
	for _, env := range s.cache.Values() {
		if showDeleted || env.State != domain.StateDeleted {
			out = append(out, env)
		}
	}
	return out
}

// GetEnvironmentByName returns the cached environment or the unknown placeholder.
func (s *EnvironmentStore) GetEnvironmentByName(name string) *domain.Environment {
	return s.cache.Get(name)
}

// GetOrFetchEnvironmentByName returns the cached environment, fetching it on a miss.
func (s *EnvironmentStore) GetOrFetchEnvironmentByName(ctx context.Context, name string) (*domain.Environment, error) {
	return s.cache.GetOrFetch(ctx, name, func(ctx context.Context) (*domain.Environment, error) {
		env, err := s.client.GetEnvironment(ctx, name)
		if err != nil {
			return nil, err
		}
		s.cache.Set(env)
		return env, nil
	})
}

// activeFilter is the list cache filter for a show-deleted flag.
func activeFilter(showDeleted bool) string {
	if showDeleted {
		return ""
	}
	return "active"
}
