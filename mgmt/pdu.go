// Package mgmt implements the management-channel half of spec.md §4.11-4.12:
// a PDU codec for the Linux BlueZ mgmt protocol, a per-adapter correlator
// and event reader, and the adapter-manager singleton on top. The codec
// mirrors att.PDU's typed-view-over-octets.Buffer shape (att/pdu.go);
// dependency order places it alongside the ATT codec, per spec.md §2.
package mgmt

import (
	"github.com/XC-/dbt/octets"
)

// Command and event headers share the same three fixed fields per
// spec.md §6: opcode u16, dev_id u16, param_len u16, then params.
const headerLen = 6

// PDU is a typed view over one complete mgmt command or event, header
// included.
type PDU struct {
	buf *octets.Buffer
}

func newPDU(op Opcode, devID uint16, paramLen int) (PDU, *octets.Buffer) {
	b := octets.New(headerLen+paramLen, headerLen+paramLen)
	b.PutU16(0, uint16(op), octets.LittleEndian)
	b.PutU16(2, devID, octets.LittleEndian)
	b.PutU16(4, uint16(paramLen), octets.LittleEndian)
	return PDU{buf: b}, b
}

// Parse wraps raw as a PDU view without copying. raw must be at least
// headerLen bytes and its param_len field must match the trailing data.
func Parse(raw []byte) (PDU, error) {
	if len(raw) < headerLen {
		return PDU{}, errShortPDU
	}
	p := PDU{buf: octets.View(raw)}
	if headerLen+int(p.ParamLen()) != len(raw) {
		return PDU{}, errShortPDU
	}
	return p, nil
}

// Opcode returns the command or event opcode.
func (p PDU) Opcode() Opcode {
	v, _ := p.buf.GetU16(0, octets.LittleEndian)
	return Opcode(v)
}

// DevID returns the adapter index the PDU targets, or 0xFFFF for
// "all adapters"/"no adapter" depending on opcode.
func (p PDU) DevID() uint16 {
	v, _ := p.buf.GetU16(2, octets.LittleEndian)
	return v
}

// ParamLen returns the declared parameter length.
func (p PDU) ParamLen() uint16 {
	v, _ := p.buf.GetU16(4, octets.LittleEndian)
	return v
}

// Params returns the parameter bytes following the header.
func (p PDU) Params() []byte {
	b := p.buf.Bytes()
	if len(b) <= headerLen {
		return nil
	}
	return b[headerLen:]
}

// Bytes returns the complete wire representation of the PDU.
func (p PDU) Bytes() []byte { return p.buf.Bytes() }

// --- Command Complete / Command Status events ---

// CommandCompleteEvent reports the outcome of a previously-issued
// command, carrying the command's own opcode, a status byte and the
// command-specific return parameters.
type CommandCompleteEvent struct{ PDU }

// ParseCommandComplete reads the Command Complete event body out of an
// already-classified PDU (EvtCommandComplete).
func ParseCommandComplete(p PDU) (CommandCompleteEvent, error) {
	params := p.Params()
	if len(params) < 3 {
		return CommandCompleteEvent{}, errShortPDU
	}
	return CommandCompleteEvent{p}, nil
}

func (e CommandCompleteEvent) CommandOpcode() Opcode {
	v, _ := e.buf.GetU16(headerLen, octets.LittleEndian)
	return Opcode(v)
}

func (e CommandCompleteEvent) Status() Status {
	v, _ := e.buf.GetU8(headerLen + 2)
	return Status(v)
}

func (e CommandCompleteEvent) ReturnParams() []byte {
	b := e.buf.Bytes()
	if len(b) <= headerLen+3 {
		return nil
	}
	return b[headerLen+3:]
}

// CommandStatusEvent reports that a command was accepted (or rejected)
// before completion; used for commands with a separately-reported
// asynchronous result.
type CommandStatusEvent struct{ PDU }

func ParseCommandStatus(p PDU) (CommandStatusEvent, error) {
	params := p.Params()
	if len(params) < 3 {
		return CommandStatusEvent{}, errShortPDU
	}
	return CommandStatusEvent{p}, nil
}

func (e CommandStatusEvent) CommandOpcode() Opcode {
	v, _ := e.buf.GetU16(headerLen, octets.LittleEndian)
	return Opcode(v)
}

func (e CommandStatusEvent) Status() Status {
	v, _ := e.buf.GetU8(headerLen + 2)
	return Status(v)
}

// --- New Settings event ---

// NewSettingsEvent reports the adapter's current settings bitmask after
// a change (spec.md §4.11's NEW_SETTINGS handling).
type NewSettingsEvent struct{ PDU }

func ParseNewSettings(p PDU) (NewSettingsEvent, error) {
	if len(p.Params()) < 4 {
		return NewSettingsEvent{}, errShortPDU
	}
	return NewSettingsEvent{p}, nil
}

func (e NewSettingsEvent) Settings() Settings {
	v, _ := e.buf.GetU32(headerLen, octets.LittleEndian)
	return Settings(v)
}

// --- Index Added / Removed events ---

// IndexAddedEvent/IndexRemovedEvent carry no parameters beyond the
// header; DevID() on the wrapping PDU names the adapter.
type IndexAddedEvent struct{ PDU }
type IndexRemovedEvent struct{ PDU }

// --- Commands ---

// NewReadVersionCmd builds the zero-parameter Read Version command,
// always addressed to the non-controller index.
func NewReadVersionCmd() PDU {
	p, _ := newPDU(CmdReadVersion, NonControllerIndex, 0)
	return p
}

// NewReadControllerIndexListCmd builds the zero-parameter Read
// Controller Index List command.
func NewReadControllerIndexListCmd() PDU {
	p, _ := newPDU(CmdReadIndexList, NonControllerIndex, 0)
	return p
}

// NewSetPowerCmd builds a Set Powered command for devID; a value of 0
// powers the adapter off, any other value powers it on.
func NewSetPowerCmd(devID uint16, powered bool) PDU {
	p, b := newPDU(CmdSetPowered, devID, 1)
	v := byte(0)
	if powered {
		v = 1
	}
	b.PutU8(headerLen, v)
	return p
}

// NewSetDiscoverableCmd builds a Set Discoverable command.
func NewSetDiscoverableCmd(devID uint16, discoverable bool, timeoutSeconds uint16) PDU {
	p, b := newPDU(CmdSetDiscoverable, devID, 3)
	v := byte(0)
	if discoverable {
		v = 1
	}
	b.PutU8(headerLen, v)
	b.PutU16(headerLen+1, timeoutSeconds, octets.LittleEndian)
	return p
}

// NewSetConnectableCmd builds a Set Connectable command.
func NewSetConnectableCmd(devID uint16, connectable bool) PDU {
	p, b := newPDU(CmdSetConnectable, devID, 1)
	v := byte(0)
	if connectable {
		v = 1
	}
	b.PutU8(headerLen, v)
	return p
}

// NewStartDiscoveryCmd builds a Start Discovery command over the given
// address-type bitmask (BR/EDR=1, LE public=2, LE random=4).
func NewStartDiscoveryCmd(devID uint16, addressTypes byte) PDU {
	p, b := newPDU(CmdStartDiscovery, devID, 1)
	b.PutU8(headerLen, addressTypes)
	return p
}

// NewStopDiscoveryCmd builds a Stop Discovery command.
func NewStopDiscoveryCmd(devID uint16, addressTypes byte) PDU {
	p, b := newPDU(CmdStopDiscovery, devID, 1)
	b.PutU8(headerLen, addressTypes)
	return p
}
