package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/deputy/pkg/observability"
)

// DefaultMaxEntries bounds a Map when Options.MaxEntries is zero.
const DefaultMaxEntries = 64

// Options configures a Map.
type Options struct {
	// Name identifies the map in observability hooks (e.g. "crates.index").
	Name string

	// TTL is the maximum age of an entry. Zero disables age eviction.
	TTL time.Duration

	// IdleTTL evicts entries that have not been read for this long.
	// Zero disables idle eviction.
	IdleTTL time.Duration

	// MaxEntries bounds the number of entries; the least recently accessed
	// entry is evicted when full.
	MaxEntries int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// WithDefaults returns a copy of o with zero fields filled in.
func (o Options) WithDefaults() Options {
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Name == "" {
		o.Name = "cache"
	}
	return o
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
	lastAccess time.Time
}

// Map is an in-memory key/value cache with time-to-live and time-to-idle
// eviction. Concurrent GetOrFetch calls for the same missing key share a
// single fetch.
//
// Values are returned by copy. Callers must not mutate slices or maps
// reachable from a cached value.
//
// All methods are safe for concurrent use.
type Map[V any] struct {
	opts Options

	mu      sync.Mutex
	entries map[string]*entry[V]
	gen     uint64

	flights singleflight.Group
}

// New creates an empty Map.
func New[V any](opts Options) *Map[V] {
	return &Map[V]{
		opts:    opts.WithDefaults(),
		entries: make(map[string]*entry[V]),
	}
}

// GetOrFetch returns the cached value for key, or runs fetch to produce it.
//
// When a fetch for key is already running, the caller waits for its result
// instead of calling its own fetch. The fetch runs detached from ctx: if ctx
// is cancelled this call returns ctx.Err() but the fetch continues and other
// waiters still receive its result. Errors are returned to every waiter and
// are never cached.
func (m *Map[V]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := m.get(key); ok {
		observability.Cache().OnCacheHit(ctx, m.opts.Name)
		return v, nil
	}
	observability.Cache().OnCacheMiss(ctx, m.opts.Name)

	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	fetchCtx := context.WithoutCancel(ctx)
	ch := m.flights.DoChan(flightKey(gen, key), func() (any, error) {
		// A previous flight may have stored the value after our lookup.
		if v, ok := m.get(key); ok {
			return v, nil
		}
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if m.store(gen, key, v) {
			observability.Cache().OnCacheSet(fetchCtx, m.opts.Name, m.Len())
		}
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Get returns the cached value for key without fetching.
func (m *Map[V]) Get(key string) (V, bool) {
	return m.get(key)
}

// Invalidate drops every entry. Fetches already in flight still deliver to
// their waiters, but their results are not stored.
func (m *Map[V]) Invalidate() {
	m.mu.Lock()
	m.gen++
	clear(m.entries)
	m.mu.Unlock()
	observability.Cache().OnCacheInvalidate(m.opts.Name)
}

// Purge removes expired entries and returns how many were dropped.
func (m *Map[V]) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeLocked(m.opts.Now())
}

// Len returns the number of stored entries, expired or not.
func (m *Map[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Map[V]) get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	e, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	now := m.opts.Now()
	if m.expired(e, now) {
		delete(m.entries, key)
		return zero, false
	}
	e.lastAccess = now
	return e.value, true
}

// store inserts v unless the map was invalidated since gen was read.
func (m *Map[V]) store(gen uint64, key string, v V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return false
	}
	now := m.opts.Now()
	m.purgeLocked(now)
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.opts.MaxEntries {
		m.evictOldestLocked()
	}
	m.entries[key] = &entry[V]{value: v, insertedAt: now, lastAccess: now}
	return true
}

func (m *Map[V]) expired(e *entry[V], now time.Time) bool {
	if m.opts.TTL > 0 && now.Sub(e.insertedAt) >= m.opts.TTL {
		return true
	}
	return m.opts.IdleTTL > 0 && now.Sub(e.lastAccess) >= m.opts.IdleTTL
}

func (m *Map[V]) purgeLocked(now time.Time) int {
	n := 0
	for k, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

func (m *Map[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range m.entries {
		if !found || e.lastAccess.Before(oldest) {
			oldestKey, oldest, found = k, e.lastAccess, true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}

func flightKey(gen uint64, key string) string {
	return strconv.FormatUint(gen, 10) + "\x00" + key
}
