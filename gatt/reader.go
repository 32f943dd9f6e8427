package gatt

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/XC-/dbt/att"
	"github.com/XC-/dbt/runner"
	"github.com/XC-/dbt/transport"
)

// log is the package-wide logger; callers may reconfigure its level the
// same way srgg-blecli's cmd/blim/logging.go does for its own logger.
var log = logrus.New()

// Reader is the per-connection worker named in spec.md §4.10: one runner
// goroutine reading and classifying one ATT PDU per iteration.
type Reader struct {
	Conn        *Conn
	Handler     ServerHandler
	PollTimeout time.Duration

	r            *runner.Runner
	ioErrorCause bool // set from the reader goroutine only; read in its own end hook
}

// NewReader builds a Reader over c, dispatching request/command PDUs to
// handler. handler may be NopHandler{} for a connection with no local or
// forwarded server role.
func NewReader(c *Conn, handler ServerHandler, pollTimeout time.Duration) *Reader {
	return &Reader{Conn: c, Handler: handler, PollTimeout: pollTimeout}
}

// Start launches the reader's worker goroutine.
func (rd *Reader) Start() error {
	rd.r = runner.New("gatt-reader", rd.iteration, runner.WithLockedEnd(rd.end))
	return rd.r.Start()
}

// Stop requests the reader stop and waits up to timeout.
func (rd *Reader) Stop(timeout time.Duration) { rd.r.Stop(timeout) }

func (rd *Reader) iteration(r *runner.Runner) {
	raw, err := rd.Conn.tr.Read(rd.PollTimeout)
	if err != nil {
		if err == transport.ErrTimeout {
			return
		}
		if !r.ShallStop() {
			rd.ioErrorCause = true
			r.SetShallStop()
		}
		return
	}
	rd.dispatch(raw)
}

func (rd *Reader) end() {
	rd.Conn.ring.Clear()
	rd.Conn.Disconnect(rd.ioErrorCause)
}

func (rd *Reader) dispatch(raw []byte) {
	pdu, err := att.Parse(raw)
	if err != nil {
		log.WithError(err).Debug("gatt: discarding malformed PDU")
		return
	}
	op := pdu.Opcode()
	switch att.ClassOf(op) {
	case att.ClassNotification:
		rd.handleNotification(raw)
	case att.ClassIndication:
		rd.handleIndication(raw)
	case att.ClassResponse, att.ClassConfirmation:
		rd.Conn.PushReply(raw)
	case att.ClassRequest, att.ClassCommand:
		if resp := rd.Handler.HandleRequest(rd.Conn, raw); resp != nil {
			rd.Conn.Send(resp)
		}
	default:
		log.WithField("opcode", op).Debug("gatt: discarding unclassified PDU")
	}
}

func (rd *Reader) handleNotification(raw []byte) {
	n := att.ParseHandleValueNotification(raw)
	handle, value := Handle(n.Handle()), n.Value()

	for _, l := range rd.Conn.Native.Snapshot() {
		safeCall("native.NotificationReceived", func() { l.NotificationReceived(handle, value) })
	}

	ch := rd.findDiscoveredCharacteristic(handle)
	if ch == nil {
		return
	}
	for _, l := range rd.Conn.Typed.Snapshot() {
		if !l.Match(ch) {
			continue
		}
		safeCall("typed.NotificationReceived", func() { l.NotificationReceived(ch, value) })
	}
}

func (rd *Reader) handleIndication(raw []byte) {
	n := att.ParseHandleValueIndication(raw)
	handle, value := Handle(n.Handle()), n.Value()

	confirmationSent := false
	if atomic.LoadInt32(&rd.Conn.SendIndicationConfirmation) != 0 {
		if err := rd.Conn.Send(att.NewHandleValueConfirmation().Bytes()); err == nil {
			confirmationSent = true
		}
	}

	for _, l := range rd.Conn.Native.Snapshot() {
		safeCall("native.IndicationReceived", func() { l.IndicationReceived(handle, value, confirmationSent) })
	}

	ch := rd.findDiscoveredCharacteristic(handle)
	if ch == nil {
		return
	}
	for _, l := range rd.Conn.Typed.Snapshot() {
		if !l.Match(ch) {
			continue
		}
		safeCall("typed.NotificationReceived", func() { l.NotificationReceived(ch, value) })
	}
}

func (rd *Reader) findDiscoveredCharacteristic(handle Handle) *Characteristic {
	for _, s := range rd.Conn.DiscoveredServices {
		for _, c := range s.Characteristics {
			if c.ValueHandle == handle {
				return c
			}
		}
	}
	return nil
}

// safeCall isolates a single listener invocation: a panicking listener is
// logged and skipped so the remaining listeners in the fan-out still run,
// per spec.md §4.10's exception-isolation requirement.
func safeCall(name string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("listener", name).WithField("panic", r).Error("gatt: listener panicked, skipping")
		}
	}()
	f()
}
