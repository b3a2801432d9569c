package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/storage/memory"
)

func TestStore_ValuesAreCopied(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	value := []byte("abc")
	_ = store.Set(ctx, "k", value)
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("Expected stored copy, got %s", got)
	}
}

func TestStore_MissingKey(t *testing.T) {
	store := memory.New()
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
