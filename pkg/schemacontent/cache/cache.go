// Package cache provides a bounded, concurrency-safe LRU cache with
// per-entry expiry. It is used by the content service to memoize
// blueprint lookups and permission-filtered views, keeping repeated
// schema and permission computation off the read path.
package cache

import (
	"errors"
	"sync"
	"time"
)

// EventType identifies an observable cache event.
type EventType string

// Cache event constants.
const (
	EventHit    EventType = "hit"
	EventMiss   EventType = "miss"
	EventSet    EventType = "set"
	EventDelete EventType = "delete"
	EventEvict  EventType = "evict"
	EventExpire EventType = "expire"
	EventClear  EventType = "clear"
)

// Event describes a single cache event. Key is the zero value for clear
// events.
type Event[K comparable] struct {
	Type EventType
	Key  K
}

// Listener observes cache events for metrics. Listeners are invoked
// synchronously while the cache lock is held and must not call back into
// the cache; reentrant mutation from a listener is disallowed and will
// deadlock.
type Listener[K comparable] func(Event[K])

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	HitRate     float64 `json:"hit_rate"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
}

// list node indices; -1 means none.
const nilIdx = -1

// node is an entry in the preallocated recency arena. The doubly linked
// ordering runs over slice indices rather than pointers.
type node[K comparable, V any] struct {
	key            K
	value          V
	createdAt      time.Time
	expiresAt      time.Time // zero means no expiry
	accessCount    int64
	lastAccessedAt time.Time
	prev, next     int
}

// Cache is a bounded LRU cache with optional per-entry TTL. All
// operations are O(1) amortized and guarded by a single mutex, since Get
// mutates recency order. Operations never fail; capacity overflow evicts
// the least-recently-used entry.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	index      map[K]int
	nodes      []node[K, V]
	free       []int
	head, tail int // head is most recently used

	hits, misses, evictions, expirations int64

	listeners []Listener[K]
	now       func() time.Time
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithDefaultTTL sets a default expiry applied to entries stored without
// an explicit TTL. Zero (the default) means entries do not expire.
func WithDefaultTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.defaultTTL = ttl
	}
}

// WithListener registers an event listener. Listeners cannot influence
// eviction decisions.
func WithListener[K comparable, V any](l Listener[K]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.listeners = append(c.listeners, l)
	}
}

// New creates a cache holding at most maxSize entries. maxSize must be
// at least 1.
func New[K comparable, V any](maxSize int, opts ...Option[K, V]) (*Cache[K, V], error) {
	if maxSize < 1 {
		return nil, errors.New("cache: maxSize must be at least 1")
	}
	c := &Cache[K, V]{
		maxSize: maxSize,
		index:   make(map[K]int, maxSize),
		nodes:   make([]node[K, V], 0, maxSize),
		head:    nilIdx,
		tail:    nilIdx,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetOption configures a single Set call.
type SetOption func(*setConfig)

type setConfig struct {
	ttl   time.Duration
	noTTL bool
}

// WithTTL gives the entry an explicit expiry, overriding the cache
// default.
func WithTTL(ttl time.Duration) SetOption {
	return func(cfg *setConfig) {
		cfg.ttl = ttl
	}
}

// WithoutTTL stores the entry with no expiry even when the cache has a
// default TTL.
func WithoutTTL() SetOption {
	return func(cfg *setConfig) {
		cfg.noTTL = true
	}
}

// Get returns the value for key and promotes it to most recently used.
// An entry whose expiry has passed counts as a miss: it is removed and
// the expiration counter incremented.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	idx, ok := c.index[key]
	if !ok {
		c.misses++
		c.emit(Event[K]{Type: EventMiss, Key: key})
		return zero, false
	}

	n := &c.nodes[idx]
	if c.expired(n) {
		c.remove(idx)
		c.expirations++
		c.misses++
		c.emit(Event[K]{Type: EventExpire, Key: key})
		c.emit(Event[K]{Type: EventMiss, Key: key})
		return zero, false
	}

	n.accessCount++
	n.lastAccessedAt = c.now()
	c.moveToFront(idx)
	c.hits++
	c.emit(Event[K]{Type: EventHit, Key: key})
	return n.value, true
}

// Set stores a value under key, promoting it to most recently used. When
// the key is new and the cache is full, the least-recently-used entry is
// evicted first so occupancy never exceeds maxSize.
func (c *Cache[K, V]) Set(key K, value V, opts ...SetOption) {
	cfg := setConfig{ttl: c.defaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expiresAt time.Time
	if cfg.ttl > 0 && !cfg.noTTL {
		expiresAt = now.Add(cfg.ttl)
	}

	if idx, ok := c.index[key]; ok {
		n := &c.nodes[idx]
		n.value = value
		n.createdAt = now
		n.expiresAt = expiresAt
		n.accessCount++
		n.lastAccessedAt = now
		c.moveToFront(idx)
		c.emit(Event[K]{Type: EventSet, Key: key})
		return
	}

	if len(c.index) >= c.maxSize {
		evicted := c.nodes[c.tail].key
		c.remove(c.tail)
		c.evictions++
		c.emit(Event[K]{Type: EventEvict, Key: evicted})
	}

	idx := c.alloc()
	c.nodes[idx] = node[K, V]{
		key:            key,
		value:          value,
		createdAt:      now,
		expiresAt:      expiresAt,
		accessCount:    1,
		lastAccessedAt: now,
		prev:           nilIdx,
		next:           nilIdx,
	}
	c.index[key] = idx
	c.pushFront(idx)
	c.emit(Event[K]{Type: EventSet, Key: key})
}

// Delete removes the entry for key, reporting whether it existed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.index[key]
	if !ok {
		return false
	}
	c.remove(idx)
	c.emit(Event[K]{Type: EventDelete, Key: key})
	return true
}

// Has reports whether a live entry exists for key without promoting it.
// An expired entry is removed and counted as an expiration.
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.index[key]
	if !ok {
		return false
	}
	if c.expired(&c.nodes[idx]) {
		c.remove(idx)
		c.expirations++
		c.emit(Event[K]{Type: EventExpire, Key: key})
		return false
	}
	return true
}

// Clear removes every entry. Counters other than size are retained.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[K]int, c.maxSize)
	c.nodes = c.nodes[:0]
	c.free = c.free[:0]
	c.head = nilIdx
	c.tail = nilIdx
	var zero K
	c.emit(Event[K]{Type: EventClear, Key: zero})
}

// Len returns the current number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Stats returns a snapshot of cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Size:        len(c.index),
		MaxSize:     c.maxSize,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// internal arena plumbing; callers hold c.mu.

func (c *Cache[K, V]) expired(n *node[K, V]) bool {
	return !n.expiresAt.IsZero() && !c.now().Before(n.expiresAt)
}

func (c *Cache[K, V]) alloc() int {
	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]
		return idx
	}
	c.nodes = append(c.nodes, node[K, V]{})
	return len(c.nodes) - 1
}

func (c *Cache[K, V]) pushFront(idx int) {
	n := &c.nodes[idx]
	n.prev = nilIdx
	n.next = c.head
	if c.head != nilIdx {
		c.nodes[c.head].prev = idx
	}
	c.head = idx
	if c.tail == nilIdx {
		c.tail = idx
	}
}

func (c *Cache[K, V]) unlink(idx int) {
	n := &c.nodes[idx]
	if n.prev != nilIdx {
		c.nodes[n.prev].next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nilIdx {
		c.nodes[n.next].prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nilIdx
	n.next = nilIdx
}

func (c *Cache[K, V]) moveToFront(idx int) {
	if c.head == idx {
		return
	}
	c.unlink(idx)
	c.pushFront(idx)
}

func (c *Cache[K, V]) remove(idx int) {
	c.unlink(idx)
	delete(c.index, c.nodes[idx].key)
	c.nodes[idx] = node[K, V]{prev: nilIdx, next: nilIdx}
	c.free = append(c.free, idx)
}

func (c *Cache[K, V]) emit(ev Event[K]) {
	for _, l := range c.listeners {
		l(ev)
	}
}
