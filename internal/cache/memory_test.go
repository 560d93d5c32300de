package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.Set(ctx, "k1", "v1", time.Minute)
	if v, ok := store.Get(ctx, "k1"); !ok || v != "v1" {
		t.Fatalf("Get(k1) = (%q, %v), want (v1, true)", v, ok)
	}
	if _, ok := store.Get(ctx, "missing"); ok {
		t.Error("missing key should be a miss")
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.Set(ctx, "short", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := store.Get(ctx, "short"); ok {
		t.Error("expired entry should be a miss")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.Set(ctx, "k", "v", time.Minute)
	store.Delete(ctx, "k")
	if _, ok := store.Get(ctx, "k"); ok {
		t.Error("deleted entry should be a miss")
	}
	// Deleting an absent key is a no-op.
	store.Delete(ctx, "absent")
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.Set(ctx, "k", "old", time.Minute)
	store.Set(ctx, "k", "new", time.Minute)
	if v, _ := store.Get(ctx, "k"); v != "new" {
		t.Errorf("Get after overwrite = %q, want new", v)
	}
	if store.Size() != 1 {
		t.Errorf("Size() = %d, want 1", store.Size())
	}
}

func TestMemoryStoreEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	store.Set(ctx, "a", "1", time.Minute)
	store.Set(ctx, "b", "2", time.Minute)
	store.Set(ctx, "c", "3", time.Minute)

	if store.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", store.Size())
	}
	if _, ok := store.Get(ctx, "a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := store.Get(ctx, "c"); !ok {
		t.Error("newest entry should survive eviction")
	}
}

func TestMemoryStoreCleanExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.Set(ctx, "stale", "v", 5*time.Millisecond)
	store.Set(ctx, "fresh", "v", time.Minute)
	time.Sleep(10 * time.Millisecond)

	if removed := store.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if store.Size() != 1 {
		t.Errorf("Size() = %d, want 1", store.Size())
	}
}

// Stop must return even when cleanup was never started.
func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Register(NewMemoryStore(4))

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running cleanup goroutine")
	}
}

func TestManagerStartAndStop(t *testing.T) {
	m := NewManager()
	m.Register(NewMemoryStore(4))
	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond) // second call is a no-op
	m.Stop()
}

func TestAnalyticsKey(t *testing.T) {
	if got := AnalyticsKey(42); got != "analytics:user:42" {
		t.Errorf("AnalyticsKey(42) = %q", got)
	}
	if CategoriesKey != "categories:list" {
		t.Errorf("CategoriesKey = %q", CategoriesKey)
	}
}
