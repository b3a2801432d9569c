package storage

import (
	"context"
)

// Storage is the key-value mirror used for small per-principal client state.
// Get returns domain.ErrNotFound for a missing key.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
