package mgmt

import (
	"sync"
	"sync/atomic"
)

// EventListener observes one class of unsolicited mgmt event for a given
// adapter. The event opcode passed to Channel.AddListener selects which
// per-opcode listener list it is registered on; HandleEvent is invoked
// with the event PDU.
type EventListener interface {
	HandleEvent(p PDU)
}

// EventListenerFunc adapts a plain function to EventListener.
type EventListenerFunc func(p PDU)

func (f EventListenerFunc) HandleEvent(p PDU) { f(p) }

// listenerList is a copy-on-write slice of EventListener, the same
// discipline as gatt's listenerList (spec.md §5): a fan-out traversal
// never holds the registration lock. mu serializes Add/Clear against
// each other so concurrent registrations cannot clobber one another.
type listenerList struct {
	mu sync.Mutex
	v  atomic.Value // []EventListener
}

func newListenerList() *listenerList {
	l := &listenerList{}
	l.v.Store([]EventListener{})
	return l
}

func (l *listenerList) Snapshot() []EventListener { return l.v.Load().([]EventListener) }

func (l *listenerList) Add(v EventListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.Snapshot()
	next := make([]EventListener, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = v
	l.v.Store(next)
}

func (l *listenerList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v.Store([]EventListener{})
}
