package gatt

import (
	"time"

	"github.com/XC-/dbt/att"
)

// FWDRequestTimeout bounds how long FWDHandler waits for the upstream's
// reply to a forwarded request. Exported so a config layer can override it.
var FWDRequestTimeout = 5 * time.Second

// Section is a contiguous byte range [Start, End) of a characteristic
// value reconstructed from one or more queued Prepare-Write fragments.
type Section struct {
	Start, End int
}

// FWDListener observes the proxy-mode events named in spec.md §4.8.3: a
// request being relayed upstream, the upstream's reply coming back, the
// contiguous ranges a committed write actually touched, and the two
// opcodes (read, MTU exchange) whose reply payload is itself interesting
// to a listener rather than just its success/failure.
type FWDListener interface {
	RequestForwarded(opcode att.Opcode, req []byte)
	ReplyReceived(opcode att.Opcode, resp []byte)
	WriteObserved(handle Handle, sections []Section, value []byte, withResponse bool)
	ReadResponseObserved(handle Handle, value []byte)
	MTUResponseObserved(usedMTU int)
}

// NopFWDListener is the default no-op FWDListener.
type NopFWDListener struct{}

func (NopFWDListener) RequestForwarded(att.Opcode, []byte)           {}
func (NopFWDListener) ReplyReceived(att.Opcode, []byte)              {}
func (NopFWDListener) WriteObserved(Handle, []Section, []byte, bool) {}
func (NopFWDListener) ReadResponseObserved(Handle, []byte)           {}
func (NopFWDListener) MTUResponseObserved(int)                       {}

// FWDHandler relays every request verbatim to Upstream and returns its
// reply to the originating client, per spec.md §4.8.3. It keeps no
// attribute database of its own: the upstream device is the authority.
type FWDHandler struct {
	Upstream *Conn
	Listener FWDListener

	serverMTU int // local-side server_mtu offered in the MTU response
}

func (h *FWDHandler) listener() FWDListener {
	if h.Listener != nil {
		return h.Listener
	}
	return NopFWDListener{}
}

func (h *FWDHandler) localServerMTU() int {
	if h.serverMTU > 0 {
		return h.serverMTU
	}
	return MaxATTMTU
}

func (h *FWDHandler) HandleRequest(c *Conn, req []byte) []byte {
	if len(req) == 0 {
		return nil
	}
	op := att.Opcode(req[0])
	switch op {
	case att.OpMTUReq:
		return h.handleMTU(c, req)
	case att.OpPrepWriteReq:
		return h.handlePrepareWrite(c, req)
	case att.OpExecWriteReq:
		return h.handleExecuteWrite(c, req)
	case att.OpWriteCmd:
		h.listener().RequestForwarded(op, req)
		h.Upstream.Send(req)
		return nil
	default:
		return h.forward(c, req, op)
	}
}

// forward relays req upstream verbatim and returns the raw reply bytes
// (success response or AttErrorRsp), observing read/write-specific hooks
// along the way.
func (h *FWDHandler) forward(c *Conn, req []byte, op att.Opcode) []byte {
	h.listener().RequestForwarded(op, req)
	resp, err := h.Upstream.SendWithReply(req, FWDRequestTimeout)
	if err != nil {
		return att.NewErrorResp(op, 0, att.ErrUnlikelyError).Bytes()
	}
	h.listener().ReplyReceived(resp.Opcode(), resp.Bytes())

	switch op {
	case att.OpReadReq:
		if resp.Opcode() == att.OpReadResp {
			h.listener().ReadResponseObserved(Handle(att.ParseReadReq(req).Handle()), att.ParseReadResp(resp.Bytes()).Value())
		}
	case att.OpReadBlobReq:
		if resp.Opcode() == att.OpReadBlobResp {
			h.listener().ReadResponseObserved(Handle(att.ParseReadBlobReq(req).Handle()), att.ParseReadBlobResp(resp.Bytes()).Value())
		}
	case att.OpWriteReq, att.OpWriteCmd:
		if resp.Opcode() == att.OpWriteResp {
			r := att.ParseWriteReq(req)
			h.listener().WriteObserved(Handle(r.Handle()), []Section{{0, len(r.Value())}}, r.Value(), true)
		}
	}
	return resp.Bytes()
}

func (h *FWDHandler) handleMTU(c *Conn, req []byte) []byte {
	clientMTU := int(att.ParseExchangeMTUReq(req).ClientMTU())
	h.listener().RequestForwarded(att.OpMTUReq, req)

	resp, err := h.Upstream.SendWithReply(att.NewExchangeMTUReq(uint16(clientMTU)).Bytes(), FWDRequestTimeout)
	if err != nil {
		return att.NewErrorResp(att.OpMTUReq, 0, att.ErrUnlikelyError).Bytes()
	}
	h.listener().ReplyReceived(resp.Opcode(), resp.Bytes())

	upstreamServerMTU := MaxATTMTU
	if resp.Opcode() == att.OpMTUResp {
		upstreamServerMTU = int(att.ParseExchangeMTUResp(resp.Bytes()).ServerMTU())
		h.Upstream.SetUsedMTU(min3(clientMTU, h.localServerMTU(), upstreamServerMTU))
	}

	// used_mtu is the three-way minimum of this handler's own server_mtu,
	// the client's requested mtu, and the upstream's server_mtu.
	used := min3(h.localServerMTU(), clientMTU, upstreamServerMTU)
	if used < MinATTMTU {
		used = MinATTMTU
	}
	c.SetUsedMTU(used)
	h.listener().MTUResponseObserved(used)
	return att.NewExchangeMTUResp(uint16(h.localServerMTU())).Bytes()
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// handlePrepareWrite records the fragment locally (so a later commit can
// report the contiguous ranges it touched) and forwards the request
// verbatim upstream, relaying its reply.
func (h *FWDHandler) handlePrepareWrite(c *Conn, req []byte) []byte {
	r := att.ParsePrepareWriteReq(req)
	c.recordPrepared(Handle(r.Handle()), int(r.Offset()), r.Value())
	return h.forward(c, req, att.OpPrepWriteReq)
}

// handleExecuteWrite reconstructs, per handle, the contiguous sections
// and data the queued Prepare-Write fragments cover and reports them via
// WriteObserved *before* forwarding the commit upstream (spec.md §4.8.3:
// "before forwarding it, it reconstructs... then invokes the native
// write-request hook... The actual Execute-Write is then forwarded"),
// then forwards the execute-write verbatim and clears the local queue.
func (h *FWDHandler) handleExecuteWrite(c *Conn, req []byte) []byte {
	r := att.ParseExecuteWriteReq(req)
	if r.Flag() == att.ExecuteWriteCommit {
		for _, handle := range c.preparedHandles {
			sections, value := coalesceWrites(c.fragmentsFor(handle))
			h.listener().WriteObserved(handle, sections, value, true)
		}
	}
	resp := h.forward(c, req, att.OpExecWriteReq)
	c.clearPrepared()
	return resp
}

// coalesceSections merges a handle's queued Prepare-Write fragments into
// the minimal set of contiguous [start,end) byte ranges they cover.
// Fragments are assumed already in offset-ascending insertion order; a
// gap between fragments starts a new section.
func coalesceSections(frags []PreparedWrite) []Section {
	var out []Section
	for _, f := range frags {
		start, end := f.Offset, f.Offset+len(f.Value)
		if n := len(out); n > 0 && out[n-1].End >= start {
			if end > out[n-1].End {
				out[n-1].End = end
			}
			continue
		}
		out = append(out, Section{Start: start, End: end})
	}
	return out
}

// coalesceWrites pairs coalesceSections' ranges with the actual bytes
// the queued fragments carried, concatenated in fragment order, so a
// WriteObserved listener sees both what ranges a commit touched and
// what was written into them.
func coalesceWrites(frags []PreparedWrite) ([]Section, []byte) {
	sections := coalesceSections(frags)
	var value []byte
	for _, f := range frags {
		value = append(value, f.Value...)
	}
	return sections, value
}
