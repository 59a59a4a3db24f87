package columnar

import (
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/btree"
)

// cacheEntry is one table's resident batch list plus its LRU bookkeeping.
// access is set on Put, bumped on every Get, and is the btree ordering key, so the
// globally-least-recently-used table is always the minimum item of the
// ordering index.
type cacheEntry struct {
	table   string
	batches []arrow.Record
	access  uint64
}

// less orders cacheEntry by (access, table) so the ordering index has a
// total order even when two tables are touched in the same tick.
func lessEntry(a, b *cacheEntry) bool {
	if a.access != b.access {
		return a.access < b.access
	}
	return a.table < b.table
}

// Cache holds Arrow record batches for every table currently warm, evicting
// the least-recently-used table once the batch-count budget is exceeded.
// The eviction candidate is found in O(log n) via a google/btree ordering
// index keyed by access counter, instead of a linear scan of all entries.
type Cache struct {
	mu           sync.Mutex
	entries      map[string]*cacheEntry
	order        *btree.BTreeG[*cacheEntry]
	accessCtr    uint64
	maxBatches   int
	totalBatches int
}

// NewCache creates a cache that evicts tables once the total number of
// resident batches across all tables exceeds maxBatches.
func NewCache(maxBatches int) *Cache {
	return &Cache{
		entries:    make(map[string]*cacheEntry),
		order:      btree.NewG(32, lessEntry),
		maxBatches: maxBatches,
	}
}

func (c *Cache) nextAccess() uint64 {
	return atomic.AddUint64(&c.accessCtr, 1)
}

// Put replaces a table's cached batches wholesale, evicting other tables as
// needed to stay within the batch-count budget.
func (c *Cache) Put(table string, batches []arrow.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[table]; ok {
		c.order.Delete(old)
		c.totalBatches -= len(old.batches)
	}

	entry := &cacheEntry{table: table, batches: batches, access: c.nextAccess()}
	c.entries[table] = entry
	c.order.ReplaceOrInsert(entry)
	c.totalBatches += len(batches)

	c.evictLocked()
}

func (c *Cache) evictLocked() {
	for c.totalBatches > c.maxBatches && c.order.Len() > 0 {
		victim, ok := c.order.Min()
		if !ok {
			return
		}
		c.order.Delete(victim)
		delete(c.entries, victim.table)
		c.totalBatches -= len(victim.batches)
	}
}

// Get returns a table's cached batches, bumping its access counter. ok is
// false on a cache miss (never flushed, or evicted).
func (c *Cache) Get(table string) (batches []arrow.Record, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[table]
	if !found {
		return nil, false
	}
	c.order.Delete(entry)
	entry.access = c.nextAccess()
	c.order.ReplaceOrInsert(entry)
	return entry.batches, true
}

// Evict drops a table's cached batches explicitly, e.g. after a DDL change
// invalidates its schema.
func (c *Cache) Evict(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[table]; ok {
		c.order.Delete(entry)
		delete(c.entries, table)
		c.totalBatches -= len(entry.batches)
	}
}

// Len reports how many tables currently have resident batches.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TotalBatches reports the total resident batch count across all tables.
func (c *Cache) TotalBatches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBatches
}
