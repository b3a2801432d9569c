package store

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/domain"
	"golang.org/x/sync/errgroup"
)

// InstanceStore mirrors instances composed with their environments.
type InstanceStore struct {
	client       backend.InstanceService
	environments *EnvironmentStore
	cache        *Cache[domain.ComposedInstance]
	logger       *log.Logger

	bgMu       sync.Mutex
	background map[bool]bool // show-deleted flags with a background list in flight
}

// NewInstanceStore creates an InstanceStore. A nil logger uses the standard logger.
func NewInstanceStore(client backend.InstanceService, environments *EnvironmentStore, logger *log.Logger) *InstanceStore {
	if logger == nil {
		logger = log.Default()
	}
	return &InstanceStore{
		client:       client,
		environments: environments,
		cache: NewCache("instance",
			func(i *domain.ComposedInstance) string { return i.Name },
			domain.UnknownInstance),
		logger:     logger,
		background: make(map[bool]bool),
	}
}

// InstanceCacheKey returns the list cache key used for a show-deleted flag.
func InstanceCacheKey(showDeleted bool) string {
	return ResourceCacheKey("instance", activeFilter(showDeleted))
}

// Reset clears the store.
func (s *InstanceStore) Reset() { s.cache.Reset() }

// CacheEntry returns the list cache entry for a show-deleted flag.
func (s *InstanceStore) CacheEntry(showDeleted bool) (ListCacheEntry, bool) {
	return s.cache.CacheEntry(InstanceCacheKey(showDeleted))
}

// InstanceList returns every cached instance.
func (s *InstanceStore) InstanceList() []*domain.ComposedInstance {
	return s.cache.Values()
}

// ActiveInstanceList returns the cached instances whose state is ACTIVE.
func (s *InstanceStore) ActiveInstanceList() []*domain.ComposedInstance {
	var out []*domain.ComposedInstance
	for _, ins := range s.cache.Values() {
		if ins.State == domain.StateActive {
			out = append(out, ins)
		}
	}
	return out
}

// ActivateInstanceCount counts active instances that consume an activation.
func (s *InstanceStore) ActivateInstanceCount() int {
	count := 0
	for _, ins := range s.ActiveInstanceList() {
		if ins.Activation {
			count++
		}
	}
	return count
}

// UpsertInstances composes every instance, then writes them all into the store.
// The result is in input order.
func (s *InstanceStore) UpsertInstances(ctx context.Context, list []*domain.Instance) ([]*domain.ComposedInstance, error) {
	composed := make([]*domain.ComposedInstance, len(list))
	g, gctx := errgroup.WithContext(ctx)
	for i, ins := range list {
		g.Go(func() error {
			c, err := s.composeInstance(gctx, ins)
			if err != nil {
				return err
			}
			composed[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.cache.Set(composed...)
	return composed, nil
}

func (s *InstanceStore) upsertOne(ctx context.Context, ins *domain.Instance) (*domain.ComposedInstance, error) {
	composed, err := s.UpsertInstances(ctx, []*domain.Instance{ins})
	if err != nil {
		return nil, err
	}
	return composed[0], nil
}

func (s *InstanceStore) composeInstance(ctx context.Context, ins *domain.Instance) (*domain.ComposedInstance, error) {
	composed := &domain.ComposedInstance{Instance: *ins}
	if ins.Environment == "" {
		composed.EnvironmentEntity = domain.UnknownEnvironment()
		return composed, nil
	}
	env, err := s.environments.GetOrFetchEnvironmentByName(ctx, ins.Environment)
	if errors.Is(err, domain.ErrNotFound) {
		env = domain.UnknownEnvironment()
	} else if err != nil {
		return nil, err
	}
	composed.EnvironmentEntity = env
	return composed, nil
}

// ListInstances fetches instances and returns the matching view of the whole store.
func (s *InstanceStore) ListInstances(ctx context.Context, showDeleted bool) ([]*domain.ComposedInstance, error) {
	err := s.cache.ListAll(ctx, InstanceCacheKey(showDeleted), func(ctx context.Context) error {
		list, err := s.client.ListInstances(ctx, showDeleted)
		if err != nil {
			return err
		}
		_, err = s.UpsertInstances(ctx, list)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.view(showDeleted), nil
}

func (s *InstanceStore) view(showDeleted bool) []*domain.ComposedInstance {
	if showDeleted {
		return s.InstanceList()
	}
	return s.ActiveInstanceList()
}

// InstanceListView returns the current view and whether its list fetch has settled.
// When no fetch has been started for this parameterization, one is started in the
// background and the view is reported as not ready.
func (s *InstanceStore) InstanceListView(ctx context.Context, showDeleted bool) ([]*domain.ComposedInstance, bool) {
	entry, ok := s.CacheEntry(showDeleted)
	if !ok {
		s.listInBackground(context.WithoutCancel(ctx), showDeleted)
	}
	return s.view(showDeleted), ok && !entry.IsFetching
}

func (s *InstanceStore) listInBackground(ctx context.Context, showDeleted bool) {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.background[showDeleted] {
		return
	}
	s.background[showDeleted] = true

	go func() {
		defer func() {
			s.bgMu.Lock()
			delete(s.background, showDeleted)
			s.bgMu.Unlock()
		}()
		if _, err := s.ListInstances(ctx, showDeleted); err != nil {
			s.logger.Printf("[InstanceStore] Background instance list failed: %v", err)
		}
	}()
}

// CreateInstance creates an instance named after instance.Name and caches it.
func (s *InstanceStore) CreateInstance(ctx context.Context, instance *domain.Instance) (*domain.ComposedInstance, error) {
	created, err := s.client.CreateInstance(ctx, instance, domain.ExtractInstanceResourceName(instance.Name))
	if err != nil {
		return nil, err
	}
	return s.upsertOne(ctx, created)
}

// UpdateInstance updates the fields in updateMask and caches the result.
func (s *InstanceStore) UpdateInstance(ctx context.Context, instance *domain.Instance, updateMask []string) (*domain.ComposedInstance, error) {
	updated, err := s.client.UpdateInstance(ctx, instance, updateMask)
	if err != nil {
		return nil, err
	}
	return s.upsertOne(ctx, updated)
}

// ArchiveInstance soft-deletes an instance. The cached copy stays, marked DELETED.
func (s *InstanceStore) ArchiveInstance(ctx context.Context, instance *domain.Instance, force bool) (*domain.ComposedInstance, error) {
	if err := s.client.DeleteInstance(ctx, instance.Name, force); err != nil {
		return nil, err
	}
	patched := *instance
	patched.State = domain.StateDeleted
	return s.upsertOne(ctx, &patched)
}

// RestoreInstance undeletes an instance and marks the cached copy ACTIVE. When the
// backend returns no instance, the given one is cached instead.
func (s *InstanceStore) RestoreInstance(ctx context.Context, instance *domain.Instance) (*domain.ComposedInstance, error) {
	restored, err := s.client.UndeleteInstance(ctx, instance.Name)
	if err != nil {
		return nil, err
	}
	if restored == nil || restored.Name == "" {
		patched := *instance
		restored = &patched
	}
	restored.State = domain.StateActive
	return s.upsertOne(ctx, restored)
}

// SyncInstance asks the backend to resync one instance's metadata.
func (s *InstanceStore) SyncInstance(ctx context.Context, name string) error {
	return s.client.SyncInstance(ctx, name)
}

// BatchSyncInstances asks the backend to resync several instances in one call.
func (s *InstanceStore) BatchSyncInstances(ctx context.Context, names []string) error {
	return s.client.BatchSyncInstances(ctx, names)
}

// FetchInstanceByName always fetches the instance and caches it.
func (s *InstanceStore) FetchInstanceByName(ctx context.Context, name string) (*domain.ComposedInstance, error) {
	ins, err := s.client.GetInstance(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.upsertOne(ctx, ins)
}

// GetInstanceByName returns the cached instance or the unknown placeholder.
func (s *InstanceStore) GetInstanceByName(name string) *domain.ComposedInstance {
	return s.cache.Get(name)
}

// GetOrFetchInstanceByName returns the cached instance, fetching it on a miss.
func (s *InstanceStore) GetOrFetchInstanceByName(ctx context.Context, name string) (*domain.ComposedInstance, error) {
	return s.cache.GetOrFetch(ctx, name, func(ctx context.Context) (*domain.ComposedInstance, error) {
		return s.FetchInstanceByName(ctx, name)
	})
}

// CreateDataSource adds a data source and caches the updated instance.
func (s *InstanceStore) CreateDataSource(ctx context.Context, instance *domain.Instance, dataSource domain.DataSource) (*domain.ComposedInstance, error) {
	updated, err := s.client.AddDataSource(ctx, instance.Name, dataSource)
	if err != nil {
		return nil, err
	}
	return s.upsertOne(ctx, updated)
}

// UpdateDataSource updates a data source and caches the updated instance.
func (s *InstanceStore) UpdateDataSource(ctx context.Context, instance *domain.Instance, dataSource domain.DataSource, updateMask []string) (*domain.ComposedInstance, error) {
	updated, err := s.client.UpdateDataSource(ctx, instance.Name, dataSource, updateMask)
	if err != nil {
		return nil, err
	}
	return s.upsertOne(ctx, updated)
}

// DeleteDataSource removes a data source and caches the updated instance.
func (s *InstanceStore) DeleteDataSource(ctx context.Context, instance *domain.Instance, dataSource domain.DataSource) (*domain.ComposedInstance, error) {
	updated, err := s.client.RemoveDataSource(ctx, instance.Name, dataSource)
	if err != nil {
		return nil, err
	}
	return s.upsertOne(ctx, updated)
}
