package metadata

import (
	"container/list"
	"sync"

	"poolwatch/internal/chain"
)

// MaxCacheEntries is the hard upper bound on the metadata cache (§3).
const MaxCacheEntries = 50000

// Entry is a cached (mint, name, symbol) with the time it was cached.
type Entry struct {
	Mint     chain.Address
	Name     string
	Symbol   string
	CachedAt int64
}

// OnArrival is invoked after a new entry is inserted, so the Metadata
// Correlator can check its pending-metadata map (§4.G's "cache arrival"
// transition) without the cache importing the correlator package.
type OnArrival func(Entry)

// Cache is the bounded mint->metadata cache (§3): single writer, many
// readers, insertion-ordered eviction on overflow. Grounded on the
// teacher's internal/storage/memory/candidate_store.go mutex-guarded map
// + defensive-copy idiom.
type Cache struct {
	mu       sync.RWMutex
	entries  map[chain.Address]*list.Element
	order    *list.List // front = oldest
	onArrive OnArrival
}

// NewCache constructs an empty cache. onArrival may be nil.
func NewCache(onArrival OnArrival) *Cache {
	return &Cache{
		entries:  make(map[chain.Address]*list.Element),
		order:    list.New(),
		onArrive: onArrival,
	}
}

// Put inserts or overwrites the entry for mint, evicting the oldest entry
// if the cache is at capacity and mint is new. Notifies OnArrival exactly
// once per call, after the entry is visible to readers.
func (c *Cache) Put(e Entry) {
	c.mu.Lock()
	if existing, ok := c.entries[e.Mint]; ok {
		existing.Value = &e
		c.order.MoveToBack(existing)
	} else {
		if c.order.Len() >= MaxCacheEntries {
			oldest := c.order.Front()
			if oldest != nil {
				old := oldest.Value.(*Entry)
				delete(c.entries, old.Mint)
				c.order.Remove(oldest)
			}
		}
		el := c.order.PushBack(&e)
		c.entries[e.Mint] = el
	}
	c.mu.Unlock()

	if c.onArrive != nil {
		c.onArrive(e)
	}
}

// Get returns the cached entry for mint, if any.
func (c *Cache) Get(mint chain.Address) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	el, ok := c.entries[mint]
	if !ok {
		return Entry{}, false
	}
	return *el.Value.(*Entry), true
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
