package cache

import (
	"testing"
	"time"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[string](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	c.Set("b", "y")
	if v, ok := c.Get("a"); !ok || v != "x" {
		t.Fatalf("got %q %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should have expired")
	}
	if n := c.Sweep(); n != 1 {
		t.Fatalf("sweep removed %d, want 1", n)
	}
	if c.Len() != 0 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[int](0)
	c.Set("k", 7)
	c.now = func() time.Time { return time.Now().Add(100 * 365 * 24 * time.Hour) }
	if v, ok := c.Get("k"); !ok || v != 7 {
		t.Fatalf("got %d %v", v, ok)
	}
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestTTLCacheGetKeepsEntryRefreshedDuringExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[string](time.Minute)
	c.now = func() time.Time { return now }
	c.Set("s", "stale")

	// The first clock read inside Get lands between the read and write
	// locks; a concurrent Set refreshes the key at that point.
	now = now.Add(2 * time.Minute)
	refreshed := false
	c.now = func() time.Time {
		if !refreshed {
			refreshed = true
			c.Set("s", "fresh")
		}
		return now
	}

	v, ok := c.Get("s")
	if !ok || v != "fresh" {
		t.Fatalf("got %q %v, want fresh entry kept", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
}
