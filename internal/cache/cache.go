// Package cache holds produced reply segments keyed by their exact name.
//
// Entries are inserted once and never mutated, so a returned Packet can be
// read without further locking. A single mutex serializes map access; it is
// never held while a segment is being computed.
//
// The cache is unbounded by default. A positive maximum evicts the oldest
// entries first.
package cache

import (
	"sync"

	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/transport"
)

// Cache maps segment names to published segment packets.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]transport.Packet
	order      []string
	maxEntries int
	evicted    uint64
}

// New creates a Cache. maxEntries <= 0 means unbounded.
func New(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]transport.Packet),
		maxEntries: maxEntries,
	}
}

// Store inserts p under its name. If the name is already present the
// existing entry is kept and Store returns false.
func (c *Cache) Store(p transport.Packet) bool {
	key := p.Name.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return false
	}
	c.entries[key] = p
	c.order = append(c.order, key)

	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.evicted++
	}
	return true
}

// Lookup returns the packet stored under exactly n.
func (c *Cache) Lookup(n name.Name) (transport.Packet, bool) {
	key := n.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.entries[key]
	return p, ok
}

// Match returns the packet stored under n, or else the earliest stored
// packet whose name has n as a prefix.
//
// The exact lookup is O(1). The prefix fallback scans every entry in
// insertion order while holding the lock, so a request for a bare response
// prefix costs O(n) in the cache size.
func (c *Cache) Match(n name.Name) (transport.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.entries[n.String()]; ok {
		return p, true
	}
	for _, key := range c.order {
		p := c.entries[key]
		if n.IsPrefixOf(p.Name) {
			return p, true
		}
	}
	return transport.Packet{}, false
}

// Len returns the number of cached segments.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evicted returns how many entries have been evicted.
func (c *Cache) Evicted() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evicted
}
