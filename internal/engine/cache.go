package engine

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Cache reuses compiled snapshots for configurations with identical content.
// Entries are keyed by a content hash, so two equal configurations built
// independently share one snapshot. Cached snapshots are never closed by the
// cache; PCRE resources are released when a snapshot becomes unreachable.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	clock      uint64
	m          map[uint64]*cacheEntry
}

type cacheEntry struct {
	compiled *Compiled
	lastUsed uint64
}

// NewCache returns a cache holding at most maxEntries snapshots, evicting the
// least recently used one. maxEntries <= 0 means 1.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		maxEntries: maxEntries,
		m:          make(map[uint64]*cacheEntry),
	}
}

// Compile returns the cached snapshot for cfg and opts, compiling it on the
// first request. opts.Logger does not take part in the key.
func (c *Cache) Compile(cfg Config, opts Options) (*Compiled, error) {
	key := Key(cfg, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	if e, ok := c.m[key]; ok {
		e.lastUsed = c.clock
		cacheHitsTotal.Inc()
		return e.compiled, nil
	}
	cacheMissesTotal.Inc()

	compiled, err := Compile(cfg, opts)
	if err != nil {
		return nil, err
	}
	if len(c.m) >= c.maxEntries {
		c.evictOldest()
	}
	c.m[key] = &cacheEntry{compiled: compiled, lastUsed: c.clock}
	return compiled, nil
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *Cache) evictOldest() {
	var oldest uint64
	var found bool
	var oldestUsed uint64
	for k, e := range c.m {
		if !found || e.lastUsed < oldestUsed {
			oldest, oldestUsed, found = k, e.lastUsed, true
		}
	}
	if found {
		delete(c.m, oldest)
	}
}

// Key hashes the content of cfg and the options that affect compilation.
// Every string is length-prefixed so that field boundaries are unambiguous.
func Key(cfg Config, opts Options) uint64 {
	d := xxhash.New()
	var buf []byte
	writeString := func(s string) {
		buf = strconv.AppendInt(buf[:0], int64(len(s)), 10)
		buf = append(buf, ':')
		_, _ = d.Write(buf)
		_, _ = d.WriteString(s)
	}
	writeInt := func(n int) {
		buf = strconv.AppendInt(buf[:0], int64(n), 10)
		buf = append(buf, ';')
		_, _ = d.Write(buf)
	}

	writeString(string(opts.Engine))
	writeInt(opts.ChunkSize)
	writeInt(len(cfg.IgnoreList))
	for _, w := range cfg.IgnoreList {
		writeString(w)
	}
	writeInt(len(cfg.Categories))
	for _, cat := range cfg.Categories {
		writeString(cat.ID)
		writeString(cat.Name)
		writeString(cat.Color)
		writeString(cat.FColor)
		if cat.Enabled {
			writeInt(1)
		} else {
			writeInt(0)
		}
		writeInt(len(cat.Words))
		for _, w := range cat.Words {
			writeString(w)
		}
	}
	return d.Sum64()
}
