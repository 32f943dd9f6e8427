package gatt

import (
	"sync"
	"sync/atomic"
)

// NativeListener observes raw protocol events on a connection, regardless
// of which characteristic they concern: notifications, indications (with
// whether a confirmation was sent) and MTU changes. The reader invokes
// NotificationReceived and IndicationReceived; no code in this package
// invokes MTUChanged. FWD-mode proxy events go to FWDListener instead.
type NativeListener interface {
	NotificationReceived(handle Handle, value []byte)
	IndicationReceived(handle Handle, value []byte, confirmationSent bool)
	MTUChanged(usedMTU int)
}

// TypedListener observes notifications/indications for characteristics
// matching Match, regardless of handle — e.g. "every Battery Level
// characteristic on any connected device".
type TypedListener interface {
	Match(c *Characteristic) bool
	NotificationReceived(c *Characteristic, value []byte)
}

// listenerList is a copy-on-write slice of T: Snapshot returns the current
// slice without locking, so a fan-out never holds the registration lock
// while invoking listeners (spec.md §5's "copy-on-write discipline so that
// a fan-out traversal does not need to hold the registration lock"). mu
// serializes Add/Remove/Clear against each other so two concurrent
// registrations read-modify-write the same base snapshot and one does
// not silently clobber the other's update; readers never take mu.
type listenerList[T any] struct {
	mu sync.Mutex
	v  atomic.Value // []T
}

func newListenerList[T any]() *listenerList[T] {
	l := &listenerList[T]{}
	l.v.Store([]T{})
	return l
}

// Snapshot returns the current listener slice. Callers must not mutate it.
func (l *listenerList[T]) Snapshot() []T {
	return l.v.Load().([]T)
}

// Add appends v to the list, publishing a new snapshot. An in-flight
// fan-out holding an older snapshot will not observe v.
func (l *listenerList[T]) Add(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.Snapshot()
	next := make([]T, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = v
	l.v.Store(next)
}

// Remove drops the first element for which match returns true, publishing
// a new snapshot. An in-flight fan-out holding the old snapshot still
// completes its call to the removed listener for that event.
func (l *listenerList[T]) Remove(match func(T) bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.Snapshot()
	idx := -1
	for i, v := range cur {
		if match(v) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	next := make([]T, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	l.v.Store(next)
	return true
}

// Clear empties the list, used on disconnect (spec.md §3: "listener lists
// are cleared on disconnect, not on reconnect").
func (l *listenerList[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v.Store([]T{})
}
