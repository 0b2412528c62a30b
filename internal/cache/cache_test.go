package cache

import (
	"testing"
	"time"
)

func TestCache_SetGetExpire(t *testing.T) {
	c := New[string](time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v")

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("got %q,%v want v,true", got, ok)
	}

	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCache_SetIfVersionRejectsStaleWriter(t *testing.T) {
	c := New[int](time.Minute)

	v := c.Version("owner")

	// a write lands between the read and the cache fill
	c.Delete("owner")

	if c.SetIfVersion("owner", 1, v) {
		t.Fatalf("expected stale fill to be rejected")
	}

	if _, ok := c.Get("owner"); ok {
		t.Fatalf("stale value must not be cached")
	}

	if !c.SetIfVersion("owner", 2, c.Version("owner")) {
		t.Fatalf("expected fill with current version to succeed")
	}

	got, ok := c.Get("owner")
	if !ok || got != 2 {
		t.Fatalf("got %d,%v want 2,true", got, ok)
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[int](0)

	c.Set("a", 1)
	v := c.Version("a")
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected cleared cache to be empty")
	}

	if c.SetIfVersion("a", 1, v) {
		t.Fatalf("expected version bump on clear")
	}
}
