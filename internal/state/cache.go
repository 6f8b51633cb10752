package state

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoFetcher is returned by Refetch on a cache built without a fetcher.
	ErrNoFetcher = errors.New("cache has no fetcher")
	// ErrFetchDiscarded is returned by Refetch when its result arrived after
	// the fetch was cancelled or superseded by a newer one.
	ErrFetchDiscarded = errors.New("fetch result discarded")
)

// Snapshot is a point-in-time cache value captured for rollback. Stored
// values are never edited in place, so holding one is a reference, not a copy.
type Snapshot[T any] struct {
	value   T
	loaded  bool
	version uint64
}

// Loaded reports whether the cache held a value when the snapshot was taken.
func (s Snapshot[T]) Loaded() bool { return s.loaded }

// Version is the cache version the snapshot was taken at.
func (s Snapshot[T]) Version() uint64 { return s.version }

// FetchStatus describes the outcome of recent refetches.
type FetchStatus struct {
	LastFetched         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple fetches.
func (s FetchStatus) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Option configures a Cache.
type Option[T any] func(*Cache[T])

// WithFetcher sets the function Refetch uses to load the authoritative value.
func WithFetcher[T any](fetch func(context.Context) (T, error)) Option[T] {
	return func(c *Cache[T]) {
		c.fetch = fetch
	}
}

// Cache holds one server-derived value under a stable key with copy-on-write
// semantics: every Write clones the current value, edits the clone and swaps
// it in, so a value handed to a reader or held in a Snapshot never changes.
type Cache[T any] struct {
	key   string
	clone func(T) T
	fetch func(context.Context) (T, error)

	mu      sync.RWMutex
	value   T
	loaded  bool
	version uint64

	fetchSeq       uint64
	discardThrough uint64
	inflight       map[uint64]context.CancelFunc
	status         FetchStatus

	notifyMu sync.Mutex
	subMu    sync.Mutex
	subs     map[int]func(T)
	nextSub  int
}

// New builds an empty cache. clone must deep-copy a value and return an
// empty, writable value for the zero T.
func New[T any](key string, clone func(T) T, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		key:      key,
		clone:    clone,
		inflight: make(map[uint64]context.CancelFunc),
		subs:     make(map[int]func(T)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache's query identity.
func (c *Cache[T]) Key() string { return c.key }

// Read returns a copy of the current value and whether one is loaded.
func (c *Cache[T]) Read() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		var zero T
		return zero, false
	}
	return c.clone(c.value), true
}

// View calls fn with the current value without copying it. fn must not
// modify the value or call back into the cache.
func (c *Cache[T]) View(fn func(value T, loaded bool)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.value, c.loaded)
}

// Version increases by one on every change of the stored value.
func (c *Cache[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Snapshot captures the current value for a later Restore.
func (c *Cache[T]) Snapshot() Snapshot[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot[T]{value: c.value, loaded: c.loaded, version: c.version}
}

// Write applies transform to a clone of the current value and stores the
// clone. It returns the snapshot of the value that was current right before
// this write; capture and swap happen under one lock. transform must not call
// back into the cache.
func (c *Cache[T]) Write(transform func(draft *T)) Snapshot[T] {
	prev := c.swap(transform)
	c.notify()
	return prev
}

func (c *Cache[T]) swap(transform func(draft *T)) Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := Snapshot[T]{value: c.value, loaded: c.loaded, version: c.version}
	draft := c.clone(c.value)
	if transform != nil {
		transform(&draft)
	}
	c.value = draft
	c.loaded = true
	c.version++
	return prev
}

// Restore puts a snapshot's value back verbatim.
func (c *Cache[T]) Restore(s Snapshot[T]) {
	c.mu.Lock()
	c.value = s.value
	c.loaded = s.loaded
	c.version++
	c.mu.Unlock()
	c.notify()
}

// Set replaces the whole value. The cache takes ownership of v.
func (c *Cache[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	c.loaded = true
	c.version++
	c.mu.Unlock()
	c.notify()
}

// Refetch loads the authoritative value and stores it, unless the fetch was
// cancelled or a newer fetch already landed, in which case ErrFetchDiscarded
// is returned and the cache is left untouched.
func (c *Cache[T]) Refetch(ctx context.Context) error {
	if c.fetch == nil {
		return ErrNoFetcher
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	c.inflight[seq] = cancel
	c.mu.Unlock()

	v, err := c.fetch(ctx)

	c.mu.Lock()
	delete(c.inflight, seq)
	if seq <= c.discardThrough {
		c.mu.Unlock()
		return ErrFetchDiscarded
	}
	if err != nil {
		c.status.LastError = err
		c.status.ConsecutiveFailures++
		c.mu.Unlock()
		return err
	}
	c.discardThrough = seq
	c.value = v
	c.loaded = true
	c.version++
	c.status = FetchStatus{LastFetched: time.Now()}
	c.mu.Unlock()

	c.notify()
	return nil
}

// CancelFetches cancels every in-flight Refetch. Their results are discarded
// even if they arrive after cancellation.
func (c *Cache[T]) CancelFetches() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for seq, cancel := range c.inflight {
		cancel()
		delete(c.inflight, seq)
	}
	c.discardThrough = c.fetchSeq
}

// Fetching reports whether a Refetch is in flight.
func (c *Cache[T]) Fetching() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.inflight) > 0
}

// Status returns the outcome of recent refetches.
func (c *Cache[T]) Status() FetchStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Subscribe registers fn to receive a copy of the value after every change.
// The returned function unregisters it.
func (c *Cache[T]) Subscribe(fn func(T)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

// notify delivers the latest value, not the value of the triggering change,
// so subscribers never see an older value after a newer one.
func (c *Cache[T]) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.subMu.Lock()
	subs := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	c.mu.RLock()
	value := c.value
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(c.clone(value))
	}
}
