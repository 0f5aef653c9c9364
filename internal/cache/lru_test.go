package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLRU[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUGetSet(t *testing.T) {
	c, _ := newTestLRU[string](2, time.Minute)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit")
	}

	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Fatalf("overwrite not applied, got %q", v)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // b is now the oldest
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestLRU[int](10, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("c", 3)

	clock.t = clock.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired removed %d, want 1 (b)", n)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}
}

func TestLRUDeleteFunc(t *testing.T) {
	c, _ := newTestLRU[int](10, time.Minute)
	c.Set("u1|x", 1)
	c.Set("u1|y", 2)
	c.Set("u2|x", 3)

	n := c.DeleteFunc(func(k string) bool { return k[:3] == "u1|" })
	if n != 2 || c.Size() != 1 {
		t.Fatalf("removed %d, size %d", n, c.Size())
	}
	c.Delete("u2|x")
	if c.Size() != 0 {
		t.Fatalf("size after delete = %d", c.Size())
	}
}

func TestManagerCleanNow(t *testing.T) {
	a, clock := newTestLRU[int](10, time.Minute)
	a.Set("k", 1)
	clock.t = clock.t.Add(2 * time.Minute)

	m := NewManager(nil)
	m.Register(a)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow = %d, want 1", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)

	done := make(chan struct{})
	go func() {
		m.Stop()
		m.Stop()
		m.StartCleanup(time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked without a running cleanup loop")
	}
}
