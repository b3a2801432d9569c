package sql_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/storage/sql"
)

func newTestStore(t *testing.T) *sql.Store {
	t.Helper()
	store, err := sql.New("sqlite3", filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SetGetOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, "k", []byte(`["a"]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "k", []byte(`["b","a"]`)); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `["b","a"]` {
		t.Errorf("Expected overwritten value, got %s", got)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "bb.project.recent-view.users/a", []byte("[]"))

	if err := store.Delete(ctx, "bb.project.recent-view.users/a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "bb.project.recent-view.users/a"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "bb.project.recent-view.users/a"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}
