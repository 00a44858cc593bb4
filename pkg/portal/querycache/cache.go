// Package querycache is a process-wide, keyed cache of read results.
//
// Every read is identified by a Key: a comparable value tagged with a Kind.
// Reads with equal keys share one entry (and one in-flight fetch); reads
// with different keys never see each other's results. Writers invalidate
// entries by key, by kind, or by predicate, and the next read of an
// invalidated key goes back to the source.
//
// Each entry carries a generation. Invalidation bumps it, and a fetch only
// stores its result if the generation it started under is still current, so
// a slow response that was overtaken by an invalidation can never be served
// as fresh.
//
// Invalidated entries that nobody is waiting on are dropped, and the number
// of tracked keys is capped (DefaultMaxEntries unless WithMaxEntries says
// otherwise), so free-form keys such as search strings cannot grow the map
// without bound.
package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Kind names a family of keys, e.g. "prompts" or "has-liked"
type Kind string

// Key identifies one cached read. Implementations must be comparable and
// must not contain pointers, since equality decides sharing.
type Key interface {
	Kind() Kind
}

// Status is the load state of an entry
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "idle"
}

// Snapshot is a point-in-time view of one entry
type Snapshot struct {
	Status    Status
	Value     any
	Err       error
	UpdatedAt time.Time
}

// EventType says what happened to an entry
type EventType int

const (
	EventUpdated EventType = iota
	EventInvalidated
)

// Event is delivered to subscribers after an entry changes
type Event struct {
	Type EventType
	Key  Key
}

// DefaultMaxEntries bounds a cache built without WithMaxEntries
const DefaultMaxEntries = 10000

type entry struct {
	generation uint64
	status     Status
	value      any
	err        error
	updatedAt  time.Time
	usedAt     time.Time
	inflight   int
}

// Cache is safe for concurrent use
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	gen     uint64

	subs    map[int]func(Event)
	nextSub int

	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	metrics    *Metrics
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL marks successful entries stale after d. Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithMaxEntries caps the number of tracked keys. Zero or less removes the cap.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithMetrics records hits, misses and invalidations
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[Key]*entry),
		subs:       make(map[int]func(Event)),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached value for key, calling fn when the key is absent,
// invalidated, expired or last failed. Concurrent callers of the same key
// share a single call to fn. A failed fetch is recorded on the entry and
// returned, but never served from cache.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		c.makeRoom()
		c.gen++
		e = &entry{generation: c.gen}
		c.entries[key] = e
	}
	e.usedAt = c.now()
	if e.status == StatusSuccess && !c.expired(e) {
		v := e.value
		c.mu.Unlock()
		c.metrics.hit(key.Kind())
		t, _ := v.(T)
		return t, nil
	}
	gen := e.generation
	e.status = StatusLoading
	e.inflight++
	c.mu.Unlock()
	c.metrics.miss(key.Kind())

	flight := fmt.Sprintf("%#v#%d", key, gen)
	ch := c.group.DoChan(flight, func() (any, error) {
		v, err := fn(context.WithoutCancel(ctx))
		c.settle(key, gen, v, err)
		return v, err
	})

	select {
	case <-ctx.Done():
		c.release(key, e, gen)
		return zero, ctx.Err()
	case res := <-ch:
		c.release(key, e, gen)
		if res.Err != nil {
			return zero, res.Err
		}
		t, _ := res.Val.(T)
		return t, nil
	}
}

// settle stores a fetch result unless the entry was invalidated meanwhile
func (c *Cache) settle(key Key, gen uint64, v any, err error) {
	c.mu.Lock()
	e := c.entries[key]
	if e == nil || e.generation != gen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		e.status = StatusError
		e.err = err
		e.value = nil
	} else {
		e.status = StatusSuccess
		e.err = nil
		e.value = v
		e.updatedAt = c.now()
	}
	subs := c.subscribers()
	c.mu.Unlock()

	notify(subs, Event{Type: EventUpdated, Key: key})
}

// release drops a waiter that joined the flight started under gen. Once
// nobody waits, an entry whose flight was discarded by an invalidation is
// dropped; one whose waiters merely gave up goes idle, since its flight may
// still settle.
func (c *Cache) release(key Key, e *entry, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.inflight--
	if e.inflight > 0 || e.status != StatusLoading {
		return
	}
	if e.generation != gen && c.entries[key] == e {
		delete(c.entries, key)
		return
	}
	e.status = StatusIdle
}

// makeRoom evicts entries until a new key fits under maxEntries. Idle,
// failed and expired entries go first, then the least recently used
// settled entry. Entries with waiters are never evicted. c.mu must be held.
func (c *Cache) makeRoom() {
	if c.maxEntries <= 0 || len(c.entries) < c.maxEntries {
		return
	}

	for k, e := range c.entries {
		if e.inflight == 0 && (e.status != StatusSuccess || c.expired(e)) {
			c.evict(k)
		}
	}

	for len(c.entries) >= c.maxEntries {
		var oldest Key
		var oldestAt time.Time
		for k, e := range c.entries {
			if e.inflight > 0 {
				continue
			}
			if oldest == nil || e.usedAt.Before(oldestAt) {
				oldest, oldestAt = k, e.usedAt
			}
		}
		if oldest == nil {
			return
		}
		c.evict(oldest)
	}
}

func (c *Cache) evict(k Key) {
	delete(c.entries, k)
	c.metrics.evicted(k.Kind())
}

func (c *Cache) expired(e *entry) bool {
	return c.ttl > 0 && c.now().Sub(e.updatedAt) > c.ttl
}

// Peek reports the current state of key without fetching
func (c *Cache) Peek(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[key]
	if e == nil {
		return Snapshot{Status: StatusIdle}
	}
	snap := Snapshot{Status: e.status, Value: e.value, Err: e.err, UpdatedAt: e.updatedAt}
	if snap.Status == StatusSuccess && c.expired(e) {
		snap.Status = StatusIdle
		snap.Value = nil
	}
	return snap
}

// Invalidate drops every entry whose key satisfies match and returns the
// keys it touched. Entries with waiters stay, under a new generation, so
// their in-flight result is discarded.
func (c *Cache) Invalidate(match func(Key) bool) []Key {
	c.mu.Lock()
	var keys []Key
	for k, e := range c.entries {
		if !match(k) {
			continue
		}
		if e.inflight == 0 {
			delete(c.entries, k)
		} else {
			c.gen++
			e.generation = c.gen
			e.value = nil
			e.err = nil
			e.status = StatusLoading
		}
		keys = append(keys, k)
	}
	subs := c.subscribers()
	c.mu.Unlock()

	for _, k := range keys {
		c.metrics.invalidated(k.Kind())
		notify(subs, Event{Type: EventInvalidated, Key: k})
	}
	return keys
}

// InvalidateKinds invalidates every entry of the given kinds
func (c *Cache) InvalidateKinds(kinds ...Kind) []Key {
	return c.Invalidate(func(k Key) bool {
		for _, kind := range kinds {
			if k.Kind() == kind {
				return true
			}
		}
		return false
	})
}

// InvalidateKey invalidates exactly one key
func (c *Cache) InvalidateKey(key Key) []Key {
	return c.Invalidate(func(k Key) bool { return k == key })
}

// Len returns the number of tracked keys
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Subscribe registers fn for entry events and returns a function that
// removes it. fn runs on the goroutine that caused the event and must not
// block.
func (c *Cache) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// subscribers copies the subscriber list; c.mu must be held
func (c *Cache) subscribers() []func(Event) {
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
