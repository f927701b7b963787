// Package cache provides the process-wide tile cache used by block-based
// rasterization: a byte-budget LRU over lazily generated tiles, with
// refcounted pins that keep in-use tiles resident.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/terminus-geospatial/timage"
)

// DefaultBudget is the default cache capacity in bytes.
const DefaultBudget = 1_000_000_000

// Generator produces one tile's payload on demand. Generators are retained
// for the lifetime of their cache entry so evicted tiles can be regenerated.
//
// Generate runs outside the cache lock and must be safe to call from any
// goroutine.
type Generator interface {
	// SizeBytes returns the byte size the generated tile will occupy.
	SizeBytes() int64

	// Generate materializes the tile.
	Generate() (any, error)
}

// TileCache is a thread-safe LRU cache of generated tiles under a byte
// budget. Tiles enter through Insert, which registers a generator and hands
// back a Handle; the tile itself is generated on the first Acquire.
//
// When resident bytes exceed the budget after a generation, unpinned tiles
// are evicted in least-recently-used order. Evicting drops the payload but
// keeps the entry, so a later Acquire regenerates transparently.
type TileCache struct {
	mu       sync.Mutex
	budget   int64
	resident int64
	lru      lruList

	// Statistics (atomic for lock-free reads).
	hits        atomic.Uint64
	misses      atomic.Uint64
	evictions   atomic.Uint64
	generations atomic.Uint64
}

// Option configures a TileCache.
type Option func(*TileCache)

// WithBudget sets the cache capacity in bytes.
func WithBudget(n int64) Option {
	return func(c *TileCache) {
		if n > 0 {
			c.budget = n
		}
	}
}

// New creates a cache with the default byte budget unless overridden.
func New(opts ...Option) *TileCache {
	c := &TileCache{budget: DefaultBudget}
	for _, o := range opts {
		o(c)
	}
	return c
}

// entry is one cached tile. The payload is immutable once generated; only
// the cache mutex guards the remaining fields.
type entry struct {
	cache *TileCache
	gen   Generator

	value any
	size  int64
	pins  int
	node  *lruNode

	// genMu serializes concurrent generation of the same tile.
	genMu sync.Mutex
}

// Handle is a reference to one cached tile. Acquire pins and materializes
// the tile; Release drops the pin. While any pin is held the tile cannot be
// evicted. Handles are shared values: the same Handle may be used from many
// goroutines.
type Handle struct {
	e *entry
}

// Insert registers a generator for one tile and returns its handle.
// Generation is deferred to the first Acquire.
func (c *TileCache) Insert(gen Generator) *Handle {
	return &Handle{e: &entry{cache: c, gen: gen}}
}

// Acquire pins the tile and returns its payload, generating it if absent.
// Every successful Acquire must be paired with a Release.
func (h *Handle) Acquire() (any, error) {
	e := h.e
	c := e.cache

	c.mu.Lock()
	e.pins++
	if e.value != nil {
		c.lru.MoveToFront(e.node)
		c.mu.Unlock()
		c.hits.Add(1)
		return e.value, nil
	}
	c.mu.Unlock()
	c.misses.Add(1)

	// Generation happens outside the cache lock; the per-entry mutex keeps
	// two goroutines from generating the same tile twice.
	e.genMu.Lock()
	defer e.genMu.Unlock()

	c.mu.Lock()
	if e.value != nil {
		c.lru.MoveToFront(e.node)
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := e.gen.Generate()
	if err != nil {
		c.mu.Lock()
		e.pins--
		c.mu.Unlock()
		return nil, err
	}
	c.generations.Add(1)

	c.mu.Lock()
	e.value = v
	e.size = e.gen.SizeBytes()
	c.resident += e.size
	e.node = c.lru.PushFront(e)
	c.evictLocked()
	c.mu.Unlock()
	return v, nil
}

// Release drops one pin. The last release makes the tile evictable; the
// payload survives until actually evicted, so a later Acquire re-uses it.
func (h *Handle) Release() {
	c := h.e.cache
	c.mu.Lock()
	if h.e.pins <= 0 {
		c.mu.Unlock()
		panic("cache: release without matching acquire")
	}
	h.e.pins--
	// A release can be what makes an over-budget cache able to shrink.
	if h.e.pins == 0 && c.resident > c.budget {
		c.evictLocked()
	}
	c.mu.Unlock()
}

// Resident reports whether the tile currently holds a generated payload.
func (h *Handle) Resident() bool {
	c := h.e.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	return h.e.value != nil
}

// evictLocked drops unpinned tiles from the cold end until the cache is
// within budget. Called with the cache mutex held.
func (c *TileCache) evictLocked() {
	node := c.lru.Oldest()
	for c.resident > c.budget && node != nil {
		prev := c.lru.Prev(node)
		e := node.ent
		if e.pins == 0 {
			c.lru.Remove(node)
			c.resident -= e.size
			timage.Logger().Debug("cache evict",
				slog.Int64("tile_bytes", e.size),
				slog.Int64("resident_bytes", c.resident))
			e.value = nil
			e.size = 0
			e.node = nil
			c.evictions.Add(1)
		}
		node = prev
	}
}

// ResidentBytes returns the total bytes of generated tiles currently held.
func (c *TileCache) ResidentBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resident
}

// Budget returns the configured capacity in bytes.
func (c *TileCache) Budget() int64 { return c.budget }

// Stats is a snapshot of cache counters.
type Stats struct {
	ResidentBytes int64
	Budget        int64
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Generations   uint64
}

// Stats returns current cache statistics.
func (c *TileCache) Stats() Stats {
	return Stats{
		ResidentBytes: c.ResidentBytes(),
		Budget:        c.budget,
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		Generations:   c.generations.Load(),
	}
}
