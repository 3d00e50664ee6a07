// Package mvcache implements MVCache: the per-file container that packs
// several variables sharing one decomposition into a single staging
// buffer before rearrangement, plus the size-bucketed buffer-reuse pool
// its alloc/realloc calls draw from.
package mvcache

import "sync"

// Slot is one staging buffer bound to a decomposition id (the
// wmulti_buffer equivalent): zero or more variables packed back-to-back
// into one contiguous Data buffer, ArrayLen elements each.
type Slot struct {
	IOID      int
	RecordVar bool
	ArrayLen  int64
	VID       []int
	Frame     []int
	FillValue [][]byte
	Data      []byte
}

// NumArrays reports how many variables' worth of data are currently
// packed into the slot.
func (s *Slot) NumArrays() int { return len(s.VID) }

// Cache is a per-file container mapping decomposition id to staging slot.
type Cache struct {
	mu    sync.Mutex
	pool  *bufPool
	slots map[int]*Slot
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{pool: newBufPool(), slots: make(map[int]*Slot)}
}

// Alloc returns a fresh buffer bound to ioid, replacing (and releasing)
// any existing slot for that id.
func (c *Cache) Alloc(ioid, bytes int) *Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.slots[ioid]; ok {
		c.pool.put(old.Data)
	}
	s := &Slot{IOID: ioid, Data: c.pool.get(bytes)}
	c.slots[ioid] = s
	return s
}

// Realloc grows ioid's existing buffer in place, preserving its current
// contents, for appending another variable to the same slot. Reports
// false if ioid has no slot.
func (c *Cache) Realloc(ioid, bytes int) (*Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[ioid]
	if !ok {
		return nil, false
	}
	if bytes <= len(s.Data) {
		return s, true
	}
	grown := c.pool.get(bytes)
	copy(grown, s.Data)
	c.pool.put(s.Data)
	s.Data = grown
	return s, true
}

// Get returns ioid's current buffer, or false if none exists.
func (c *Cache) Get(ioid int) (*Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[ioid]
	return s, ok
}

// Free releases ioid's buffer; a subsequent Get(ioid) returns false.
func (c *Cache) Free(ioid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[ioid]; ok {
		c.pool.put(s.Data)
		delete(c.slots, ioid)
	}
}

// Clear frees every slot. Callers must empty the cache before a file
// close completes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.slots {
		c.pool.put(s.Data)
	}
	c.slots = make(map[int]*Slot)
}

// Empty reports whether the cache currently holds no slots.
func (c *Cache) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots) == 0
}

// IOIDs returns the decomposition ids currently holding a staged slot, in
// no particular order. Used to drain every slot before a flush or close.
func (c *Cache) IOIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.slots))
	for id := range c.slots {
		ids = append(ids, id)
	}
	return ids
}
