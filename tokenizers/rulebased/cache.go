package rulebased

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// cacheEntry is the finished token list of a chunk, stamped with the version of the rules it was
// computed under. Entries from an older version are ignored.
type cacheEntry struct {
	version uint64
	pieces  []piece
}

// chunkCache maps the exact text of a chunk to its tokens.
// Implementations must be safe for concurrent use.
type chunkCache interface {
	get(chunk string) (cacheEntry, bool)
	put(chunk string, e cacheEntry)
	purge()
	len() int
}

// mapCache is the default cache: it grows for as long as the tokenizer lives.
type mapCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]cacheEntry)}
}

func (c *mapCache) get(chunk string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[chunk]
	return e, ok
}

func (c *mapCache) put(chunk string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[chunk] = e
}

func (c *mapCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *mapCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// lruCache bounds memory, evicting the least recently used chunks.
type lruCache struct {
	entries *lru.Cache[string, cacheEntry]
}

func newLRUCache(size int) (*lruCache, error) {
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create chunk cache of size %d", size)
	}
	return &lruCache{entries: entries}, nil
}

func (c *lruCache) get(chunk string) (cacheEntry, bool) { return c.entries.Get(chunk) }
func (c *lruCache) put(chunk string, e cacheEntry)      { c.entries.Add(chunk, e) }
func (c *lruCache) purge()                              { c.entries.Purge() }
func (c *lruCache) len() int                            { return c.entries.Len() }

// noCache never stores anything.
type noCache struct{}

func (noCache) get(string) (cacheEntry, bool) { return cacheEntry{}, false }
func (noCache) put(string, cacheEntry)        {}
func (noCache) purge()                        {}
func (noCache) len() int                      { return 0 }
