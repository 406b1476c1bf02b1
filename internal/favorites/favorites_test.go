package favorites

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// exerciseStore runs the shared behavior checks against a Store backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	titles, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(titles) != 0 {
		t.Errorf("Expected empty favorites initially, got %v", titles)
	}

	if err := store.Add(ctx, "BBC One"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(ctx, "Alpha TV"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Adding an existing favorite is a no-op.
	if err := store.Add(ctx, "BBC One"); err != nil {
		t.Fatalf("Duplicate add failed: %v", err)
	}

	titles, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Alpha TV", "BBC One"}, titles); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	found, err := store.IsFavorite(ctx, "BBC One")
	if err != nil {
		t.Fatalf("IsFavorite failed: %v", err)
	}
	if !found {
		t.Error("Expected 'BBC One' to be a favorite")
	}

	found, err = store.IsFavorite(ctx, "Unknown")
	if err != nil {
		t.Fatalf("IsFavorite failed: %v", err)
	}
	if found {
		t.Error("Expected 'Unknown' not to be a favorite")
	}

	if err := store.Remove(ctx, "BBC One"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	found, err = store.IsFavorite(ctx, "BBC One")
	if err != nil {
		t.Fatalf("IsFavorite failed: %v", err)
	}
	if found {
		t.Error("Expected 'BBC One' to be removed")
	}

	// Removing a non-favorite is a no-op.
	if err := store.Remove(ctx, "Never Added"); err != nil {
		t.Fatalf("Remove of non-favorite failed: %v", err)
	}

	state, err := store.Toggle(ctx, "Toggled")
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !state {
		t.Error("Expected first toggle to mark as favorite")
	}
	state, err = store.Toggle(ctx, "Toggled")
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if state {
		t.Error("Expected second toggle to unmark")
	}
	found, err = store.IsFavorite(ctx, "Toggled")
	if err != nil {
		t.Fatalf("IsFavorite failed: %v", err)
	}
	if found {
		t.Error("Expected 'Toggled' to be unmarked after double toggle")
	}

	// Empty titles are rejected.
	if err := store.Add(ctx, ""); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("Add(\"\") error = %v, want ErrEmptyTitle", err)
	}
	if err := store.Remove(ctx, ""); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("Remove(\"\") error = %v, want ErrEmptyTitle", err)
	}
	if _, err := store.Toggle(ctx, ""); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("Toggle(\"\") error = %v, want ErrEmptyTitle", err)
	}
}

func TestSet(t *testing.T) {
	store, err := NewBoltStore(testDB(t), "default")
	if err != nil {
		t.Fatalf("NewBoltStore failed: %v", err)
	}

	ctx := context.Background()
	for _, title := range []string{"One", "Two"} {
		if err := store.Add(ctx, title); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	set, err := Set(ctx, store)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !set["One"] || !set["Two"] || set["Three"] {
		t.Errorf("Unexpected favorites set: %v", set)
	}
}
