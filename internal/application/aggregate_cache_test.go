package application

import (
	"testing"
	"time"

	"github.com/example/class-timetable/internal/scheduler"
)

func cachedAggregate(className string, ids ...string) scheduler.Aggregate {
	start := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	entries := make([]scheduler.Entry, 0, len(ids))
	for i, id := range ids {
		s := start.Add(time.Duration(i) * time.Hour)
		entries = append(entries, scheduler.Entry{ID: id, ClassName: className, Subject: "Math", Room: "101", StartAt: s, EndAt: s.Add(30 * time.Minute)})
	}
	return scheduler.NewAggregate(className, entries)
}

func TestAggregateCacheReturnsCopies(t *testing.T) {
	t.Parallel()

	cache := newAggregateCache(time.Minute, 4, nil)
	original := cachedAggregate("10A", "a", "b")
	cache.Store(original)

	original.Entries[0].Room = "mutated"

	cached, ok := cache.Get("10A")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached.Entries[0].Room != "101" {
		t.Fatalf("expected cached entry to remain unchanged, got %s", cached.Entries[0].Room)
	}

	cached.Entries[0].Room = "changed"
	again, _ := cache.Get("10A")
	if again.Entries[0].Room != "101" {
		t.Fatalf("expected cache to return independent copy, got %s", again.Entries[0].Room)
	}
}

func TestAggregateCacheExpiry(t *testing.T) {
	t.Parallel()

	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newAggregateCache(time.Minute, 4, func() time.Time { return current })

	cache.Store(cachedAggregate("10A", "a"))
	current = current.Add(30 * time.Second)

	// Local mutations keep the original load time.
	cache.Update(cachedAggregate("10A", "a", "b"))
	if got, ok := cache.Get("10A"); !ok || got.Len() != 2 {
		t.Fatalf("expected updated aggregate before expiry, got %v %v", got, ok)
	}

	current = current.Add(30 * time.Second)
	if _, ok := cache.Get("10A"); ok {
		t.Fatalf("expected aggregate to expire one ttl after load")
	}
}

func TestAggregateCacheWithoutTTLNeverExpires(t *testing.T) {
	t.Parallel()

	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newAggregateCache(0, 4, func() time.Time { return current })
	cache.Store(cachedAggregate("10A", "a"))

	current = current.Add(24 * time.Hour)
	if _, ok := cache.Get("10A"); !ok {
		t.Fatalf("expected aggregate to stay cached without ttl")
	}

	cache.Invalidate("10A")
	if _, ok := cache.Get("10A"); ok {
		t.Fatalf("expected cache miss after invalidation")
	}
}

func TestAggregateCacheEvictsOldestClass(t *testing.T) {
	t.Parallel()

	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newAggregateCache(0, 2, func() time.Time { return current })

	cache.Store(cachedAggregate("10A", "a"))
	current = current.Add(time.Second)
	cache.Store(cachedAggregate("10B", "b"))
	current = current.Add(time.Second)
	cache.Store(cachedAggregate("10C", "c"))

	if _, ok := cache.Get("10A"); ok {
		t.Fatalf("expected oldest class to be evicted")
	}
	for _, className := range []string{"10B", "10C"} {
		if _, ok := cache.Get(className); !ok {
			t.Fatalf("expected %s to remain cached", className)
		}
	}
}

func TestAggregateCacheUpdateRespectsCapacity(t *testing.T) {
	t.Parallel()

	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newAggregateCache(0, 2, func() time.Time { return current })

	cache.Store(cachedAggregate("10A", "a"))
	current = current.Add(time.Second)
	cache.Store(cachedAggregate("10B", "b"))
	current = current.Add(time.Second)
	cache.Update(cachedAggregate("10C", "c"))

	cache.mu.Lock()
	size := len(cache.entries)
	cache.mu.Unlock()
	if size != 2 {
		t.Fatalf("expected cache to hold 2 classes, got %d", size)
	}
	if _, ok := cache.Get("10A"); ok {
		t.Fatalf("expected oldest class to be evicted")
	}
	for _, className := range []string{"10B", "10C"} {
		if _, ok := cache.Get(className); !ok {
			t.Fatalf("expected %s to remain cached", className)
		}
	}
}
