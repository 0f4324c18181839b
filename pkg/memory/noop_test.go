package memory

import (
	"context"
	"testing"
)

func TestNullStoreRemembersNothing(t *testing.T) {
	ctx := context.Background()
	store := NewNullStore()

	e := NewEntry("engineer", "this should vanish", nil, nil)
	if err := store.Store(ctx, e); err != nil {
		t.Fatalf("store: %v", err)
	}

	results, err := store.Retrieve(ctx, "vanish", "engineer", 10)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("null store returned %d entries", len(results))
	}

	if err := store.Update(ctx, e.ID, EntryUpdate{}); err != nil {
		t.Errorf("update: %v", err)
	}
	if err := store.Delete(ctx, e.ID); err != nil {
		t.Errorf("delete: %v", err)
	}
}

func TestNullStoreStillLogsAccess(t *testing.T) {
	ctx := context.Background()
	store := NewNullStore()

	_ = store.Store(ctx, NewEntry("engineer", "x", nil, nil))
	_, _ = store.Retrieve(ctx, "x", "engineer", 5)

	stats := store.AccessStats()
	if stats.TotalAccesses != 2 {
		t.Errorf("total accesses = %d, want 2", stats.TotalAccesses)
	}
	if stats.Operations["store_attempted"] != 1 {
		t.Errorf("operations = %v", stats.Operations)
	}
}
