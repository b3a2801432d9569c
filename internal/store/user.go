package store

import (
	"context"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/domain"
)

// UserStore mirrors users, keyed by "users/{email}".
type UserStore struct {
	client backend.UserService
	cache  *Cache[domain.User]
}

// NewUserStore creates a UserStore.
func NewUserStore(client backend.UserService) *UserStore {
	return &UserStore{
		client: client,
		cache: NewCache("user",
			func(u *domain.User) string { return u.Name },
			domain.UnknownUser),
	}
}

// Reset clears the store.
func (s *UserStore) Reset() { s.cache.Reset() }

// UpsertUsers writes users into the store.
func (s *UserStore) UpsertUsers(list []*domain.User) []*domain.User {
	s.cache.Set(list...)
	return list
}

// ListUsers fetches every user and returns the cached list.
func (s *UserStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	err := s.cache.ListAll(ctx, ResourceCacheKey("user", ""), func(ctx context.Context) error {
		list, err := s.client.ListUsers(ctx)
		if err != nil {
			return err
		}
		s.UpsertUsers(list)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.cache.Values(), nil
}

// GetUserByName returns the cached user or the unknown placeholder.
func (s *UserStore) GetUserByName(name string) *domain.User {
	return s.cache.Get(name)
}

// GetUserByEmail returns the cached user with email, or nil.
func (s *UserStore) GetUserByEmail(email string) *domain.User {
	if email == "" {
		return nil
	}
	u, ok := s.cache.Lookup(domain.UserNameForEmail(email))
	if !ok {
		return nil
	}
	return u
}

// GetOrFetchUserByEmail returns the cached user with email, fetching it on a miss.
func (s *UserStore) GetOrFetchUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	name := domain.UserNameForEmail(email)
	return s.cache.GetOrFetch(ctx, name, func(ctx context.Context) (*domain.User, error) {
		u, err := s.client.GetUser(ctx, name)
		if err != nil {
			return nil, err
		}
		s.cache.Set(u)
		return u, nil
	})
}
