package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestKey_Normalizes(t *testing.T) {
	a := Key(KindSearch, "  The   Witcher 3 ", "external")
	b := Key(KindSearch, "the witcher 3", "external")
	assert.Equal(t, a, b)
	assert.Equal(t, "search|the+witcher+3|external", a)
}

func TestKey_FlagOrderIrrelevant(t *testing.T) {
	a := Key(KindSearch, "halo", "all", "external", "limit=10")
	b := Key(KindSearch, "halo", "limit=10", "external", "all")
	assert.Equal(t, a, b)
}

func TestKey_Distinguishes(t *testing.T) {
	assert.NotEqual(t, Key(KindSearch, "halo"), Key(KindDetails, "halo"))
	assert.NotEqual(t, Key(KindSearch, "halo", Flag("external", true)), Key(KindSearch, "halo", Flag("external", false)))
	assert.Equal(t, Key(KindSearch, "halo"), Key(KindSearch, "halo", Flag("external", false)))

	// separators inside the query stay part of the query
	assert.NotEqual(t, Key(KindSearch, "halo|external"), Key(KindSearch, "halo", "external"))
	assert.NotEqual(t, Key(KindDetails, "rawg_1|critic"), Key(KindDetails, "rawg_1", "critic"))
	assert.NotEqual(t, Key(KindSearch, "halo|limit=10"), Key(KindSearch, "halo", "limit=10"))
}

func TestCache_PutGet(t *testing.T) {
	c := New(DefaultConfig())
	key := Key(KindSearch, "doom")

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, "payload")
	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", v)
	assert.Equal(t, 1, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCache_LazyExpiryPerKind(t *testing.T) {
	clock := &testClock{t: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	c := New(DefaultConfig(), WithClock(clock.Now))

	search := Key(KindSearch, "doom")
	details := Key(KindDetails, "rawg_1")
	c.Put(search, 1)
	c.Put(details, 2)

	clock.Advance(9 * time.Minute)
	_, ok := c.Get(search)
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = c.Get(search)
	assert.False(t, ok, "search entries live 10 minutes")
	_, ok = c.Get(details)
	assert.True(t, ok, "details entries live 24 hours")
	assert.Equal(t, 2, c.Len(), "expired entries are not evicted")

	clock.Advance(24 * time.Hour)
	_, ok = c.Get(details)
	assert.False(t, ok)
}

func TestCache_PutSupersedes(t *testing.T) {
	clock := &testClock{t: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	c := New(Config{SearchTTL: time.Minute}, WithClock(clock.Now))
	key := Key(KindSearch, "doom")

	c.Put(key, "old")
	clock.Advance(2 * time.Minute)
	c.Put(key, "new")

	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestCache_Clear(t *testing.T) {
	c := New(DefaultConfig())
	c.Put(Key(KindSearch, "a"), 1)
	c.Put(Key(KindDetails, "b"), 2)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(Key(KindSearch, "a"))
	assert.False(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(DefaultConfig())
	key := Key(KindSearch, "shared")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Put(key, i)
		}(i)
		go func() {
			defer wg.Done()
			c.Get(key)
		}()
	}
	wg.Wait()

	_, ok := c.Get(key)
	assert.True(t, ok)
}
