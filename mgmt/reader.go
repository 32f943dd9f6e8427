package mgmt

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/XC-/dbt/runner"
	"github.com/XC-/dbt/transport"
)

// Reader is the adapter-manager reader named in spec.md §4.11: "Same
// pattern as §4.6 + §4.10 but over the management channel and with
// management PDUs." One runner goroutine reads one mgmt PDU per
// iteration off the shared control channel and either completes a
// pending correlator wait or fans the event out to listeners.
type Reader struct {
	Channel     *Channel
	PollTimeout time.Duration

	r            *runner.Runner
	ioErrorCause bool

	onIOError func(ioErrorCause bool)
}

// NewReader builds a Reader over ch. onIOError, if non-nil, is invoked
// once the reader's transport fails permanently.
func NewReader(ch *Channel, pollTimeout time.Duration, onIOError func(bool)) *Reader {
	return &Reader{Channel: ch, PollTimeout: pollTimeout, onIOError: onIOError}
}

func (rd *Reader) Start() error {
	rd.r = runner.New("mgmt-reader", rd.iteration, runner.WithLockedEnd(rd.end))
	return rd.r.Start()
}

func (rd *Reader) Stop(timeout time.Duration) { rd.r.Stop(timeout) }

func (rd *Reader) iteration(r *runner.Runner) {
	raw, err := rd.Channel.tr.Read(rd.PollTimeout)
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
	if rd.onIOError != nil {
		rd.onIOError(rd.ioErrorCause)
	}
}

func (rd *Reader) dispatch(raw []byte) {
	p, err := Parse(raw)
	if err != nil {
		log.WithError(err).Debug("mgmt: discarding malformed PDU")
		return
	}
	switch p.Opcode() {
	case EvtCommandComplete:
		if _, err := ParseCommandComplete(p); err != nil {
			log.WithError(err).Debug("mgmt: discarding malformed Command Complete")
			return
		}
		rd.Channel.deliverReply(p.DevID(), raw)
	case EvtCommandStatus:
		cs, err := ParseCommandStatus(p)
		if err != nil {
			log.WithError(err).Debug("mgmt: discarding malformed Command Status")
			return
		}
		rd.Channel.deliverReply(p.DevID(), raw)
		_ = cs
	default:
		rd.Channel.dispatchEvent(p.Opcode(), p)
	}
}

var log = logrus.New()
