// file: internal/reset/reset.go
// version: 1.1.0
// guid: 1d8e9f0a-2b3c-4d5e-8f7a-9b0c1d2e3f4a

package reset

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// MarkerStore persists the last-reset time so services constructed after a
// reset fired can still detect it. The storage engine implements this over
// its meta keyspace.
type MarkerStore interface {
	SaveResetMarker(t time.Time) error
	LoadResetMarker() (time.Time, error)
}

// Broadcaster fans a store-wide invalidation signal out to every registered
// listener. Bulk destructive operations (clear-all, restore) publish here so
// services holding derived in-memory state can drop it, without the storage
// layer knowing about any specific service.
type Broadcaster struct {
	listeners *xsync.MapOf[uint64, func(time.Time)]
	nextToken atomic.Uint64
	lastReset atomic.Int64 // unix nanos of the last reset seen this process
	marker    MarkerStore  // optional durable marker
}

// NewBroadcaster creates a broadcaster. marker may be nil, in which case
// HasBeenResetSince only sees resets from the current process.
func NewBroadcaster(marker MarkerStore) *Broadcaster {
	return &Broadcaster{
		listeners: xsync.NewMapOf[uint64, func(time.Time)](),
		marker:    marker,
	}
}

// Notify emits the reset signal to all listeners and persists the durable
// marker. Listener callbacks run on the caller's goroutine.
func (b *Broadcaster) Notify() {
	now := time.Now()
	b.lastReset.Store(now.UnixNano())

	if b.marker != nil {
		if err := b.marker.SaveResetMarker(now); err != nil {
			log.Printf("[WARN] failed to persist reset marker: %v", err)
		}
	}

	count := 0
	b.listeners.Range(func(_ uint64, fn func(time.Time)) bool {
		fn(now)
		count++
		return true
	})
	if count > 0 {
		log.Printf("Reset broadcast delivered to %d listeners", count)
	}
}

// AddListener registers a callback for reset events and returns its
// unregister function. Unregistering is idempotent and safe from component
// teardown paths.
func (b *Broadcaster) AddListener(fn func(time.Time)) (unregister func()) {
	token := b.nextToken.Add(1)
	b.listeners.Store(token, fn)
	return func() {
		b.listeners.Delete(token)
	}
}

// HasBeenResetSince is the polling fallback for components that cannot hold
// a live listener across their lifecycle. It consults the in-process stamp
// first, then the durable marker.
func (b *Broadcaster) HasBeenResetSince(t time.Time) bool {
	if last := b.lastReset.Load(); last != 0 && time.Unix(0, last).After(t) {
		return true
	}
	if b.marker != nil {
		persisted, err := b.marker.LoadResetMarker()
		if err != nil {
			log.Printf("[WARN] failed to load reset marker: %v", err)
			return false
		}
		return !persisted.IsZero() && persisted.After(t)
	}
	return false
}

// ListenerCount reports the number of live listeners.
func (b *Broadcaster) ListenerCount() int {
	return b.listeners.Size()
}
