package mgmt

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/XC-/dbt/config"
	"github.com/XC-/dbt/ringbuf"
	"github.com/XC-/dbt/transport"
)

// ErrTimeout is returned by SendWithReply when no Command Complete/Status
// event arrives in time.
var ErrTimeout = errors.New("mgmt: command timed out")

// setPowerExtraTimeout is spec.md §4.11's "SET_POWER command uses a longer
// reply timeout (max(default_cmd_timeout, 6s))".
const setPowerExtraTimeout = 6 * time.Second

// correlator is the per-adapter request/reply pairing state named in
// spec.md §4.11, mirroring gatt.Conn's sendmu+ring pattern (gatt/conn.go)
// but scoped to one dev_id on the shared control channel.
type correlator struct {
	devID uint16

	sendmu sync.Mutex
	ring   *ringbuf.Ring
}

func newCorrelator(devID uint16, ringCapacity int) *correlator {
	return &correlator{devID: devID, ring: ringbuf.New(ringCapacity)}
}

// Channel owns the single BlueZ mgmt control socket shared by every
// adapter (spec.md §6's management channel wire format binds to
// HCI_DEV_NONE, not a per-adapter socket). Per-adapter correlators
// demultiplex Command Complete/Status replies by dev_id.
type Channel struct {
	tr transport.Transport

	mu         sync.Mutex
	correlators map[uint16]*correlator

	listeners [evtOpcodeCount]*listenerList

	ringCapacity int
}

// NewChannel wraps tr (typically transport.NewMgmtControlSocket()) as a
// mgmt Channel.
func NewChannel(tr transport.Transport) *Channel {
	c := &Channel{
		tr:           tr,
		correlators:  make(map[uint16]*correlator),
		ringCapacity: config.Get().MgmtRingSize,
	}
	for i := range c.listeners {
		c.listeners[i] = newListenerList()
	}
	return c
}

func (c *Channel) correlatorFor(devID uint16) *correlator {
	c.mu.Lock()
	defer c.mu.Unlock()
	cor, ok := c.correlators[devID]
	if !ok {
		cor = newCorrelator(devID, c.ringCapacity)
		c.correlators[devID] = cor
	}
	return cor
}

// AddListener registers l to be invoked for every event with the given
// opcode, regardless of dev_id; l itself is expected to filter by
// PDU.DevID() when it cares about a specific adapter.
func (c *Channel) AddListener(op Opcode, l EventListener) {
	if int(op) >= len(c.listeners) {
		return
	}
	c.listeners[op].Add(l)
}

// Send writes a command PDU without waiting for a reply (used for
// commands whose result is observed purely via a later event).
func (c *Channel) Send(p PDU) error {
	return c.tr.Write(p.Bytes())
}

// SendWithReply writes p, then blocks for up to timeout for the next
// Command Complete/Status event queued for p's dev_id (the event's command
// opcode is not compared against p's opcode), serialized under
// that adapter's correlator so at most one command per adapter is ever
// in flight (spec.md §4.11's "per-adapter recursive send-mutex"; Go's
// mutexes aren't reentrant, so as with gatt.Conn, callers must not call
// SendWithReply again from within a listener already holding it).
func (c *Channel) SendWithReply(p PDU, timeout time.Duration) (PDU, error) {
	if p.Opcode() == CmdSetPowered && timeout < setPowerExtraTimeout {
		timeout = setPowerExtraTimeout
	}
	cor := c.correlatorFor(p.DevID())
	cor.sendmu.Lock()
	defer cor.sendmu.Unlock()

	if err := c.tr.Write(p.Bytes()); err != nil {
		return PDU{}, errors.Wrap(err, "mgmt: send failed")
	}
	raw, ok := cor.ring.GetBlocking(timeout)
	if !ok {
		return PDU{}, ErrTimeout
	}
	reply, err := Parse(raw)
	if err != nil {
		return PDU{}, err
	}
	return reply, nil
}

// deliverReply routes a Command Complete/Status event to the waiting
// correlator for its dev_id; called by the channel reader.
func (c *Channel) deliverReply(devID uint16, raw []byte) {
	c.correlatorFor(devID).ring.PutBlocking(raw)
}

// dispatchEvent fans raw out to every listener registered for op; called
// by the channel reader for any event that is not a reply to an
// in-flight command.
func (c *Channel) dispatchEvent(op Opcode, p PDU) {
	if int(op) >= len(c.listeners) {
		return
	}
	for _, l := range c.listeners[op].Snapshot() {
		safeCall(func() { l.HandleEvent(p) })
	}
}

func safeCall(f func()) {
	defer func() { recover() }()
	f()
}
