package cache

import (
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string, string], *clock) {
	clk := &clock{t: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string, string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCacheEviction(t *testing.T) {
	c, _ := newTestCache(3, time.Hour)
	var evicted []string
	c.OnEvict = func(k string) { evicted = append(evicted, k) }

	c.Set("2018-01-01..2018-01-31", "jan")
	c.Set("2018-02-01..2018-02-28", "feb")
	c.Set("2018-03-01..2018-03-31", "mar")
	// Touch jan so feb becomes the oldest.
	if _, found := c.Get("2018-01-01..2018-01-31"); !found {
		t.Fatal("jan should exist")
	}
	c.Set("2018-04-01..2018-04-30", "apr")

	if _, found := c.Get("2018-02-01..2018-02-28"); found {
		t.Error("feb should have been evicted")
	}
	for _, k := range []string{"2018-01-01..2018-01-31", "2018-03-01..2018-03-31", "2018-04-01..2018-04-30"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should still exist", k)
		}
	}
	if len(evicted) != 1 || evicted[0] != "2018-02-01..2018-02-28" {
		t.Errorf("evicted = %v, want [feb]", evicted)
	}
}

func TestLRUCacheTTLExpiration(t *testing.T) {
	c, clk := newTestCache(10, 50*time.Millisecond)

	c.Set("key1", "value1")
	if _, found := c.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	clk.advance(60 * time.Millisecond)
	if _, found := c.Get("key1"); found {
		t.Error("key1 should have expired")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after expired read, want 0", c.Size())
	}
}

func TestLRUCacheOverwriteRefreshesTTL(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)

	c.Set("k", "old")
	clk.advance(45 * time.Second)
	c.Set("k", "new")
	clk.advance(45 * time.Second)

	got, found := c.Get("k")
	if !found || got != "new" {
		t.Errorf("Get() = %q, %v; want new, true", got, found)
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clk.advance(2 * time.Minute)
	c.Set("c", "3")

	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d, want 0", c.Size())
	}
}

func TestLRUCacheConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int, int](64, time.Hour)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.Set(i%128, g)
				c.Get(i % 128)
			}
		}(g)
	}
	wg.Wait()

	if c.Size() > 64 {
		t.Errorf("Size() = %d, want at most 64", c.Size())
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	a, clkA := newTestCache(10, time.Minute)
	b, clkB := newTestCache(10, time.Minute)
	a.Set("x", "1")
	b.Set("y", "2")
	b.Set("z", "3")
	clkA.advance(time.Hour)
	clkB.advance(time.Hour)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)

	if n := m.CleanNow(); n != 3 {
		t.Errorf("CleanNow() = %d, want 3", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() blocked without a running cleanup loop")
	}
}
