package service

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"
)

// BatchSyncer asks the backend to resync instance metadata.
type BatchSyncer interface {
	BatchSyncInstances(ctx context.Context, names []string) error
}

// InstanceSyncService batches instance sync requests.
type InstanceSyncService struct {
	client   BatchSyncer
	debounce time.Duration
	logger   *log.Logger

	mu        sync.Mutex
	syncTimer *time.Timer
	pending   []string
}

// NewInstanceSyncService creates a new InstanceSyncService. A nil logger uses the
// standard logger.
func NewInstanceSyncService(client BatchSyncer, debounce time.Duration, logger *log.Logger) *InstanceSyncService {
	if logger == nil {
		logger = log.Default()
	}
	return &InstanceSyncService{client: client, debounce: debounce, logger: logger}
}

// Trigger queues name for a debounced sync.
// Multiple triggers within the debounce period will result in a single batch call.
func (s *InstanceSyncService) Trigger(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.pending, name) {
		s.pending = append(s.pending, name)
	}

	// Cancel existing timer
	if s.syncTimer != nil {
		s.syncTimer.Stop()
	}
	s.syncTimer = time.AfterFunc(s.debounce, func() {
		if err := s.Flush(context.Background()); err != nil {
			s.logger.Printf("[InstanceSync] Batch sync failed: %v", err)
		}
	})
}

// Pending returns the names waiting for the next batch.
func (s *InstanceSyncService) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pending)
}

// Flush syncs every pending instance now. It is a no-op when nothing is pending.
func (s *InstanceSyncService) Flush(ctx context.Context) error {
	s.mu.Lock()
	// Cancel any pending debounced sync
	if s.syncTimer != nil {
		s.syncTimer.Stop()
		s.syncTimer = nil
	}
	names := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(names) == 0 {
		return nil
	}
	if err := s.client.BatchSyncInstances(ctx, names); err != nil {
		return err
	}
	s.logger.Printf("[InstanceSync] Synced %d instance(s)", len(names))
	return nil
}
