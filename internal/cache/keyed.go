package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Keyed is a shared cache of last-known values. Views subscribe to a key and
// are told whenever its value changes, whether through a fetch they started, a
// fetch another view started, or a local write such as prepending a freshly
// created transaction.
//
// Concurrent Refresh calls for one key share a single fetch. Fetches for
// different keys are independent and complete in any order. A fetch that
// overlaps a local write to its key is discarded, since its snapshot may
// predate the write.
type Keyed[T any] struct {
	values *LRUCache[T]
	group  singleflight.Group

	// publish serialises write+notify so subscribers see changes to a key in
	// the order they were stored. It also guards gens.
	publish sync.Mutex
	gens    map[string]uint64

	mu     sync.Mutex
	subs   map[string]map[uint64]func(T)
	nextID uint64
}

// NewKeyed creates a cache holding at most maxSize keys. A non-positive ttl
// keeps values until they are replaced or invalidated.
func NewKeyed[T any](maxSize int, ttl time.Duration) *Keyed[T] {
	return &Keyed[T]{
		values: NewLRUCache[T](maxSize, ttl),
		gens:   make(map[string]uint64),
		subs:   make(map[string]map[uint64]func(T)),
	}
}

// Subscribe registers fn for changes to key and returns a function that
// removes it. fn runs synchronously on the writer's goroutine and must not
// write to this cache.
func (k *Keyed[T]) Subscribe(key string, fn func(T)) (unsubscribe func()) {
	k.mu.Lock()
	k.nextID++
	id := k.nextID
	if k.subs[key] == nil {
		k.subs[key] = make(map[uint64]func(T))
	}
	k.subs[key][id] = fn
	k.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			defer k.mu.Unlock()
			delete(k.subs[key], id)
			if len(k.subs[key]) == 0 {
				delete(k.subs, key)
			}
		})
	}
}

// Subscribers returns the number of live subscriptions for key.
func (k *Keyed[T]) Subscribers(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.subs[key])
}

func (k *Keyed[T]) listeners(key string) []func(T) {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]func(T), 0, len(k.subs[key]))
	for _, fn := range k.subs[key] {
		out = append(out, fn)
	}
	return out
}

// Peek returns the last-known value without fetching.
func (k *Keyed[T]) Peek(key string) (T, bool) {
	return k.values.Get(key)
}

// Set stores v and notifies subscribers.
func (k *Keyed[T]) Set(key string, v T) {
	k.publish.Lock()
	defer k.publish.Unlock()
	k.gens[key]++
	k.store(key, v)
}

// store writes and notifies; publish must be held.
func (k *Keyed[T]) store(key string, v T) {
	k.values.Set(key, v)
	for _, fn := range k.listeners(key) {
		fn(v)
	}
}

// Update atomically derives a new value from the current one, stores it and
// notifies subscribers.
func (k *Keyed[T]) Update(key string, fn func(current T, present bool) T) T {
	k.publish.Lock()
	defer k.publish.Unlock()
	k.gens[key]++
	v := k.values.Compute(key, fn)
	for _, l := range k.listeners(key) {
		l(v)
	}
	return v
}

// Invalidate drops the value; subscribers keep their last copy until the next
// write. A fetch already in flight for key will not store its result.
func (k *Keyed[T]) Invalidate(key string) {
	k.publish.Lock()
	defer k.publish.Unlock()
	k.gens[key]++
	k.values.Delete(key)
}

func (k *Keyed[T]) generation(key string) uint64 {
	k.publish.Lock()
	defer k.publish.Unlock()
	return k.gens[key]
}

// maxRefetch bounds how often Refresh retries a fetch outrun by writes.
const maxRefetch = 3

// Refresh fetches key, stores the result and notifies subscribers. Concurrent
// callers for the same key share one fetch and its outcome. On error the
// cached value is left as it was.
//
// When the key is written while the fetch runs, the fetched snapshot is
// dropped: the value written locally is kept and returned, or, if the key was
// invalidated, the fetch is repeated.
func (k *Keyed[T]) Refresh(ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	v, err, _ := k.group.Do(key, func() (any, error) {
		var v T
		for attempt := 0; attempt < maxRefetch; attempt++ {
			gen := k.generation(key)
			var err error
			v, err = fetch(ctx)
			if err != nil {
				return v, err
			}

			k.publish.Lock()
			if k.gens[key] == gen {
				k.gens[key]++
				k.store(key, v)
				k.publish.Unlock()
				return v, nil
			}
			cur, ok := k.values.Get(key)
			k.publish.Unlock()
			if ok {
				return cur, nil
			}
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Get returns the cached value, fetching through Refresh on a miss.
func (k *Keyed[T]) Get(ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := k.Peek(key); ok {
		return v, nil
	}
	return k.Refresh(ctx, key, fetch)
}

func (k *Keyed[T]) CleanExpired() int {
	return k.values.CleanExpired()
}

func (k *Keyed[T]) Size() int {
	return k.values.Size()
}
