package mgmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XC-/dbt/transport"
)

// runFakeController drives the kernel side of the control channel: it
// reads one command at a time and replies with a Command Complete
// carrying the given status.
func runFakeController(t *testing.T, tr transport.Transport, status Status) {
	t.Helper()
	go func() {
		for {
			raw, err := tr.Read(0)
			if err != nil {
				return
			}
			p, err := Parse(raw)
			if err != nil {
				return
			}
			reply := buildCommandComplete(p.DevID(), p.Opcode(), status, nil)
			if err := tr.Write(reply); err != nil {
				return
			}
		}
	}()
}

func TestSendWithReplyCorrelatesByDevID(t *testing.T) {
	a, b := transport.NewPipePair()
	runFakeController(t, b, StatusSuccess)
	ch := NewChannel(a)
	reader := NewReader(ch, 20*time.Millisecond, nil)
	require.NoError(t, reader.Start())
	defer reader.Stop(time.Second)

	reply, err := ch.SendWithReply(NewSetConnectableCmd(2, true), time.Second)
	require.NoError(t, err)
	cc, err := ParseCommandComplete(reply)
	require.NoError(t, err)
	assert.Equal(t, CmdSetConnectable, cc.CommandOpcode())
	assert.True(t, cc.Status().OK())
}

func TestSendWithReplyTimesOutWhenNoReply(t *testing.T) {
	a, _ := transport.NewPipePair()
	ch := NewChannel(a)
	_, err := ch.SendWithReply(NewSetConnectableCmd(0, true), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSendWithReplyAppliesSetPowerExtraTimeout(t *testing.T) {
	a, b := transport.NewPipePair()
	done := make(chan struct{})
	go func() {
		defer close(done)
		raw, err := b.Read(time.Second)
		require.NoError(t, err)
		p, err := Parse(raw)
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond) // shorter than setPowerExtraTimeout, longer than a short caller timeout
		reply := buildCommandComplete(p.DevID(), p.Opcode(), StatusSuccess, nil)
		require.NoError(t, b.Write(reply))
	}()
	ch := NewChannel(a)
	reader := NewReader(ch, 20*time.Millisecond, nil)
	require.NoError(t, reader.Start())
	defer reader.Stop(time.Second)

	// Caller passes a timeout far shorter than setPowerExtraTimeout; Set
	// Powered must still be given at least setPowerExtraTimeout to reply.
	_, err := ch.SendWithReply(NewSetPowerCmd(0, true), time.Millisecond)
	assert.NoError(t, err)
	<-done
}

func TestAddListenerReceivesUnsolicitedEvents(t *testing.T) {
	a, b := transport.NewPipePair()
	ch := NewChannel(a)

	received := make(chan PDU, 1)
	ch.AddListener(EvtIndexAdded, EventListenerFunc(func(p PDU) { received <- p }))

	go func() {
		evt, _ := newPDU(EvtIndexAdded, 5, 0)
		b.Write(evt.Bytes())
	}()

	reader := NewReader(ch, 50*time.Millisecond, nil)
	require.NoError(t, reader.Start())
	defer reader.Stop(time.Second)

	select {
	case p := <-received:
		assert.EqualValues(t, 5, p.DevID())
	case <-time.After(time.Second):
		t.Fatal("listener never observed Index Added")
	}
}
