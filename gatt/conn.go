package gatt

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/XC-/dbt/att"
	"github.com/XC-/dbt/ringbuf"
	"github.com/XC-/dbt/transport"
)

// Role is which side of the connection this endpoint plays.
type Role int

const (
	RoleCentral Role = iota
	RolePeripheral
)

// ErrTimeout is returned by SendWithReply when no reply arrives in time.
var ErrTimeout = errors.New("gatt: request timed out")

// ErrDisconnected is returned when an operation is attempted on a closed
// connection (spec.md §7's Disconnected kind).
var ErrDisconnected = errors.New("gatt: connection is closed")

// PreparedWrite is one queued Prepare-Write fragment.
type PreparedWrite struct {
	Handle Handle
	Offset int
	Value  []byte
}

// Conn is the per-connection GATT state named in spec.md §3 "Connection
// state (per device, GATT)": the transport, the correlator, discovered
// service tree, prepared-write queue, listener lists.
type Conn struct {
	Role Role

	tr transport.Transport

	ring *ringbuf.Ring

	sendmu sync.Mutex // serializes writers; recursive not needed in Go since
	// Go mutexes aren't reentrant — callers must not call Send from within
	// a function already holding it.

	serverMTU int
	usedMTU   int32 // atomic
	mtuExchg  int32 // atomic bool: client_mtu_exchanged

	connected int32 // atomic bool
	ioError   int32 // atomic bool

	closeOnce sync.Once

	// Server-side / forwarder-side state.
	DB              *AttributeDatabase
	preparedQueue   []PreparedWrite
	preparedHandles []Handle // insertion order, deduplicated

	// Client-side discovered tree.
	DiscoveredServices []*Service

	Native *listenerList[NativeListener]
	Typed  *listenerList[TypedListener]

	SendIndicationConfirmation int32 // atomic bool

	OnDisconnect func(ioErrorCause bool)
}

// NewConn wraps tr as a new connection with the given ring-channel
// capacity (spec.md §6's direct_bt.gatt.ringsize).
func NewConn(tr transport.Transport, role Role, ringCapacity int) *Conn {
	c := &Conn{
		Role:      role,
		tr:        tr,
		ring:      ringbuf.New(ringCapacity),
		serverMTU: MaxATTMTU,
		usedMTU:   MinATTMTU,
		Native:    newListenerList[NativeListener](),
		Typed:     newListenerList[TypedListener](),
	}
	atomic.StoreInt32(&c.connected, 1)
	return c
}

func (c *Conn) UsedMTU() int         { return int(atomic.LoadInt32(&c.usedMTU)) }
func (c *Conn) SetUsedMTU(mtu int)   { atomic.StoreInt32(&c.usedMTU, int32(mtu)) }
func (c *Conn) IsConnected() bool    { return atomic.LoadInt32(&c.connected) != 0 }
func (c *Conn) HasIOError() bool     { return atomic.LoadInt32(&c.ioError) != 0 }
func (c *Conn) MTUExchanged() bool   { return atomic.LoadInt32(&c.mtuExchg) != 0 }
func (c *Conn) setMTUExchanged()     { atomic.StoreInt32(&c.mtuExchg, 1) }

// Send writes pdu to the transport under the send lock. pdu.len must not
// exceed UsedMTU (spec.md §4.6).
func (c *Conn) Send(pdu []byte) error {
	if len(pdu) > c.UsedMTU() {
		return fmt.Errorf("gatt: pdu length %d exceeds used_mtu %d", len(pdu), c.UsedMTU())
	}
	c.sendmu.Lock()
	err := c.tr.Write(pdu)
	c.sendmu.Unlock()
	if err != nil {
		atomic.StoreInt32(&c.ioError, 1)
		c.Disconnect(true)
		return errors.Wrap(err, "gatt: send failed")
	}
	return nil
}

// SendWithReply sends pdu, then blocks on the ring channel for up to
// timeout for the matching reply (spec.md §4.6). On timeout it sets the
// I/O-error flag and disconnects, mirroring a failed request/reply.
func (c *Conn) SendWithReply(pdu []byte, timeout time.Duration) (att.PDU, error) {
	if !c.IsConnected() {
		return att.PDU{}, ErrDisconnected
	}
	if err := c.Send(pdu); err != nil {
		return att.PDU{}, err
	}
	raw, ok := c.ring.GetBlocking(timeout)
	if !ok {
		atomic.StoreInt32(&c.ioError, 1)
		c.Disconnect(true)
		return att.PDU{}, ErrTimeout
	}
	return att.Parse(raw)
}

// PushReply enqueues a response-type PDU for a waiting SendWithReply call;
// called by the connection reader (spec.md §4.10 step 2's "push into the
// ring channel").
func (c *Conn) PushReply(pdu []byte) { c.ring.PutBlocking(pdu) }

// Disconnect idempotently transitions the connection to closed, clears the
// ring channel and listener lists, and closes the transport exactly once
// (spec.md §3's "Disconnection transitions is_connected true→false exactly
// once" and §5's compare-and-exchange policy).
func (c *Conn) Disconnect(ioErrorCause bool) {
	if !atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return
	}
	c.closeOnce.Do(func() {
		c.ring.Clear()
		c.Native.Clear()
		c.Typed.Clear()
		c.tr.Close()
		if c.OnDisconnect != nil {
			c.OnDisconnect(ioErrorCause)
		}
	})
}

// recordPrepared appends a prepared-write fragment and tracks the
// insertion-ordered handle set (spec.md §4.8.2).
func (c *Conn) recordPrepared(h Handle, offset int, value []byte) {
	c.preparedQueue = append(c.preparedQueue, PreparedWrite{Handle: h, Offset: offset, Value: append([]byte{}, value...)})
	for _, existing := range c.preparedHandles {
		if existing == h {
			return
		}
	}
	c.preparedHandles = append(c.preparedHandles, h)
}

func (c *Conn) clearPrepared() {
	c.preparedQueue = nil
	c.preparedHandles = nil
}

// fragmentsFor returns every queued fragment for handle h, in insertion
// order.
func (c *Conn) fragmentsFor(h Handle) []PreparedWrite {
	var out []PreparedWrite
	for _, f := range c.preparedQueue {
		if f.Handle == h {
			out = append(out, f)
		}
	}
	return out
}
