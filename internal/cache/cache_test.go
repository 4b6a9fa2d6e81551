package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := NewTagCache(time.Minute)
	c.Set("stats:1", 42, "stats")

	v, ok := c.Get("stats:1")
	if !ok {
		t.Fatal("expected hit")
	}
	if v.(int) != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestGetMiss(t *testing.T) {
	c := NewTagCache(time.Minute)
	if _, ok := c.Get("absent"); ok {
		t.Fatal("expected miss")
	}
}

func TestExpiry(t *testing.T) {
	c := NewTagCache(time.Minute)
	c.Set("stats:1", 42, "stats")

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok := c.Get("stats:1"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestEvictByTag(t *testing.T) {
	c := NewTagCache(time.Minute)
	c.Set("stats:1", 1, "stats")
	c.Set("stats:2", 2, "stats")
	c.Set("months:1", 3, "months")

	c.Evict("stats")

	if _, ok := c.Get("stats:1"); ok {
		t.Fatal("stats:1 should be evicted")
	}
	if _, ok := c.Get("stats:2"); ok {
		t.Fatal("stats:2 should be evicted")
	}
	if _, ok := c.Get("months:1"); !ok {
		t.Fatal("months:1 should survive")
	}
}

func TestEvictUnknownTag(t *testing.T) {
	c := NewTagCache(time.Minute)
	c.Set("stats:1", 1, "stats")
	c.Evict("nope")
	if _, ok := c.Get("stats:1"); !ok {
		t.Fatal("unrelated eviction should not drop entries")
	}
}
