package att

import (
	"encoding/binary"
	"fmt"

	"github.com/XC-/dbt/octets"
	"github.com/XC-/dbt/uuid"
)

// PDU is a typed view over an owned octets.Buffer holding one complete ATT
// PDU, opcode byte included. Every constructor below builds the backing
// buffer directly; every accessor reads from it lazily, so a PDU is cheap
// to construct and to pass by value.
type PDU struct {
	buf *octets.Buffer
}

// Opcode returns the PDU's opcode byte.
func (p PDU) Opcode() Opcode {
	b, _ := p.buf.GetU8(0)
	return Opcode(b)
}

// Bytes returns the complete wire representation of the PDU.
func (p PDU) Bytes() []byte { return p.buf.Bytes() }

// Len returns the PDU's length in bytes, as it would appear on the wire.
func (p PDU) Len() int { return p.buf.Size() }

func newPDU(op Opcode, payloadLen int) (PDU, *octets.Buffer) {
	b := octets.New(1+payloadLen, 1+payloadLen)
	b.PutU8(0, byte(op))
	return PDU{buf: b}, b
}

func fromBytes(b []byte) PDU { return PDU{buf: octets.View(b)} }

// --- Error Response ---

// ErrorResp is sent by either peer to refuse a request (spec.md §4.3).
type ErrorResp struct{ PDU }

// NewErrorResp builds an Error Response for reqOpcode/handle/code.
func NewErrorResp(reqOpcode Opcode, handle uint16, code ErrorCode) ErrorResp {
	p, b := newPDU(OpError, 4)
	b.PutU8(1, byte(reqOpcode))
	b.PutU16(2, handle, octets.LittleEndian)
	b.PutU8(4, byte(code))
	return ErrorResp{p}
}

func (e ErrorResp) RequestOpcode() Opcode {
	v, _ := e.buf.GetU8(1)
	return Opcode(v)
}
func (e ErrorResp) Handle() uint16 {
	v, _ := e.buf.GetU16(2, octets.LittleEndian)
	return v
}
func (e ErrorResp) ErrorCode() ErrorCode {
	v, _ := e.buf.GetU8(4)
	return ErrorCode(v)
}

// --- Exchange MTU ---

type ExchangeMTUReq struct{ PDU }

func NewExchangeMTUReq(clientMTU uint16) ExchangeMTUReq {
	p, b := newPDU(OpMTUReq, 2)
	b.PutU16(1, clientMTU, octets.LittleEndian)
	return ExchangeMTUReq{p}
}
func (m ExchangeMTUReq) ClientMTU() uint16 {
	v, _ := m.buf.GetU16(1, octets.LittleEndian)
	return v
}

type ExchangeMTUResp struct{ PDU }

func NewExchangeMTUResp(serverMTU uint16) ExchangeMTUResp {
	p, b := newPDU(OpMTUResp, 2)
	b.PutU16(1, serverMTU, octets.LittleEndian)
	return ExchangeMTUResp{p}
}
func (m ExchangeMTUResp) ServerMTU() uint16 {
	v, _ := m.buf.GetU16(1, octets.LittleEndian)
	return v
}

// --- Find Information ---

type FindInfoReq struct{ PDU }

func NewFindInfoReq(start, end uint16) FindInfoReq {
	p, b := newPDU(OpFindInfoReq, 4)
	b.PutU16(1, start, octets.LittleEndian)
	b.PutU16(3, end, octets.LittleEndian)
	return FindInfoReq{p}
}
func (r FindInfoReq) StartHandle() uint16 {
	v, _ := r.buf.GetU16(1, octets.LittleEndian)
	return v
}
func (r FindInfoReq) EndHandle() uint16 {
	v, _ := r.buf.GetU16(3, octets.LittleEndian)
	return v
}

// InfoPair is one (handle, type UUID) element of a Find Information Response.
type InfoPair struct {
	Handle uint16
	Type   uuid.UUID
}

type FindInfoResp struct{ PDU }

// NewFindInfoResp builds a Find Information Response. Every element's UUID
// must share the same Len() (2 or 16); callers are responsible for having
// already split a mixed-size result into same-size runs (spec.md §4.8.2).
func NewFindInfoResp(pairs []InfoPair) (FindInfoResp, error) {
	if len(pairs) == 0 {
		return FindInfoResp{}, fmt.Errorf("att: FindInfoResp needs at least one pair")
	}
	uuidLen := pairs[0].Type.Len()
	format := byte(0x01)
	if uuidLen == 16 {
		format = 0x02
	}
	elemSize := 2 + uuidLen
	p, b := newPDU(OpFindInfoResp, 1+elemSize*len(pairs))
	b.PutU8(1, format)
	off := 2
	for _, e := range pairs {
		if e.Type.Len() != uuidLen {
			return FindInfoResp{}, fmt.Errorf("att: mixed uuid sizes in FindInfoResp")
		}
		b.PutU16(off, e.Handle, octets.LittleEndian)
		b.PutBytes(off+2, e.Type.LittleEndianBytes())
		off += elemSize
	}
	return FindInfoResp{p}, nil
}

func (r FindInfoResp) uuidLen() int {
	format, _ := r.buf.GetU8(1)
	if format == 0x02 {
		return 16
	}
	return 2
}

// ElementCount returns the number of (handle, uuid) pairs present.
func (r FindInfoResp) ElementCount() int {
	elemSize := 2 + r.uuidLen()
	return (r.buf.Size() - 2) / elemSize
}

// Element returns the i'th (handle, uuid) pair.
func (r FindInfoResp) Element(i int) InfoPair {
	uuidLen := r.uuidLen()
	elemSize := 2 + uuidLen
	off := 2 + i*elemSize
	h, _ := r.buf.GetU16(off, octets.LittleEndian)
	raw, _ := r.buf.GetBytes(off+2, uuidLen)
	var u uuid.UUID
	if uuidLen == 2 {
		u, _ = uuid.From16(raw.Bytes(), true)
	} else {
		u, _ = uuid.From128(raw.Bytes(), true)
	}
	return InfoPair{Handle: h, Type: u}
}

// --- Find By Type Value ---

type FindByTypeValueReq struct{ PDU }

func NewFindByTypeValueReq(start, end uint16, attType uuid.UUID, attValue []byte) FindByTypeValueReq {
	p, b := newPDU(OpFindByTypeValueReq, 6+len(attValue))
	b.PutU16(1, start, octets.LittleEndian)
	b.PutU16(3, end, octets.LittleEndian)
	b.PutBytes(5, attType.LittleEndianBytes())
	b.PutBytes(7, attValue)
	return FindByTypeValueReq{p}
}
func (r FindByTypeValueReq) StartHandle() uint16 {
	v, _ := r.buf.GetU16(1, octets.LittleEndian)
	return v
}
func (r FindByTypeValueReq) EndHandle() uint16 {
	v, _ := r.buf.GetU16(3, octets.LittleEndian)
	return v
}
func (r FindByTypeValueReq) Type() uuid.UUID {
	raw, _ := r.buf.GetBytes(5, 2)
	u, _ := uuid.From16(raw.Bytes(), true)
	return u
}
func (r FindByTypeValueReq) Value() []byte {
	raw, _ := r.buf.GetBytes(7, r.buf.Size()-7)
	return raw.Bytes()
}

// HandleGroup is one (found, groupEnd) element of a Find By Type Value
// Response.
type HandleGroup struct {
	Found     uint16
	GroupEnd  uint16
}

type FindByTypeValueResp struct{ PDU }

func NewFindByTypeValueResp(groups []HandleGroup) FindByTypeValueResp {
	p, b := newPDU(OpFindByTypeValueRsp, 4*len(groups))
	off := 1
	for _, g := range groups {
		b.PutU16(off, g.Found, octets.LittleEndian)
		b.PutU16(off+2, g.GroupEnd, octets.LittleEndian)
		off += 4
	}
	return FindByTypeValueResp{p}
}
func (r FindByTypeValueResp) ElementCount() int { return (r.buf.Size() - 1) / 4 }
func (r FindByTypeValueResp) Element(i int) HandleGroup {
	off := 1 + i*4
	f, _ := r.buf.GetU16(off, octets.LittleEndian)
	e, _ := r.buf.GetU16(off+2, octets.LittleEndian)
	return HandleGroup{Found: f, GroupEnd: e}
}

// --- Read By Type ---

type ReadByTypeReq struct{ PDU }

func NewReadByTypeReq(start, end uint16, attType uuid.UUID) ReadByTypeReq {
	p, b := newPDU(OpReadByTypeReq, 4+attType.Len())
	b.PutU16(1, start, octets.LittleEndian)
	b.PutU16(3, end, octets.LittleEndian)
	b.PutBytes(5, attType.LittleEndianBytes())
	return ReadByTypeReq{p}
}
func (r ReadByTypeReq) StartHandle() uint16 {
	v, _ := r.buf.GetU16(1, octets.LittleEndian)
	return v
}
func (r ReadByTypeReq) EndHandle() uint16 {
	v, _ := r.buf.GetU16(3, octets.LittleEndian)
	return v
}
func (r ReadByTypeReq) Type() uuid.UUID {
	n := r.buf.Size() - 5
	raw, _ := r.buf.GetBytes(5, n)
	var u uuid.UUID
	if n == 2 {
		u, _ = uuid.From16(raw.Bytes(), true)
	} else {
		u, _ = uuid.From128(raw.Bytes(), true)
	}
	return u
}

// TypeElement is one (handle, value) element of a Read By Type Response.
type TypeElement struct {
	Handle uint16
	Value  []byte
}

type ReadByTypeResp struct{ PDU }

// NewReadByTypeResp builds a Read By Type Response; every element's value
// must be the same length (spec.md §4.8.2 uniform-element-size rule).
func NewReadByTypeResp(elems []TypeElement) (ReadByTypeResp, error) {
	if len(elems) == 0 {
		return ReadByTypeResp{}, fmt.Errorf("att: ReadByTypeResp needs at least one element")
	}
	valLen := len(elems[0].Value)
	elemSize := 2 + valLen
	p, b := newPDU(OpReadByTypeResp, 1+elemSize*len(elems))
	b.PutU8(1, byte(elemSize))
	off := 2
	for _, e := range elems {
		if len(e.Value) != valLen {
			return ReadByTypeResp{}, fmt.Errorf("att: mixed value sizes in ReadByTypeResp")
		}
		b.PutU16(off, e.Handle, octets.LittleEndian)
		b.PutBytes(off+2, e.Value)
		off += elemSize
	}
	return ReadByTypeResp{p}, nil
}
func (r ReadByTypeResp) ElementSize() int {
	v, _ := r.buf.GetU8(1)
	return int(v)
}
func (r ReadByTypeResp) ElementCount() int { return (r.buf.Size() - 2) / r.ElementSize() }
func (r ReadByTypeResp) Element(i int) TypeElement {
	elemSize := r.ElementSize()
	off := 2 + i*elemSize
	h, _ := r.buf.GetU16(off, octets.LittleEndian)
	raw, _ := r.buf.GetBytes(off+2, elemSize-2)
	return TypeElement{Handle: h, Value: raw.Bytes()}
}

// --- Read By Group Type ---

type ReadByGroupTypeReq struct{ PDU }

func NewReadByGroupTypeReq(start, end uint16, groupType uuid.UUID) ReadByGroupTypeReq {
	p, b := newPDU(OpReadByGroupReq, 4+groupType.Len())
	b.PutU16(1, start, octets.LittleEndian)
	b.PutU16(3, end, octets.LittleEndian)
	b.PutBytes(5, groupType.LittleEndianBytes())
	return ReadByGroupTypeReq{p}
}
func (r ReadByGroupTypeReq) StartHandle() uint16 {
	v, _ := r.buf.GetU16(1, octets.LittleEndian)
	return v
}
func (r ReadByGroupTypeReq) EndHandle() uint16 {
	v, _ := r.buf.GetU16(3, octets.LittleEndian)
	return v
}
func (r ReadByGroupTypeReq) GroupType() uuid.UUID {
	n := r.buf.Size() - 5
	raw, _ := r.buf.GetBytes(5, n)
	var u uuid.UUID
	if n == 2 {
		u, _ = uuid.From16(raw.Bytes(), true)
	} else {
		u, _ = uuid.From128(raw.Bytes(), true)
	}
	return u
}

// GroupElement is one (start, end, value) element of a Read By Group Type
// Response - for primary/secondary service discovery, Value is the
// service's type UUID encoded little-endian.
type GroupElement struct {
	Start uint16
	End   uint16
	Value []byte
}

type ReadByGroupTypeResp struct{ PDU }

func NewReadByGroupTypeResp(elems []GroupElement) (ReadByGroupTypeResp, error) {
	if len(elems) == 0 {
		return ReadByGroupTypeResp{}, fmt.Errorf("att: ReadByGroupTypeResp needs at least one element")
	}
	valLen := len(elems[0].Value)
	elemSize := 4 + valLen
	p, b := newPDU(OpReadByGroupResp, 1+elemSize*len(elems))
	b.PutU8(1, byte(elemSize))
	off := 2
	for _, e := range elems {
		if len(e.Value) != valLen {
			return ReadByGroupTypeResp{}, fmt.Errorf("att: mixed value sizes in ReadByGroupTypeResp")
		}
		b.PutU16(off, e.Start, octets.LittleEndian)
		b.PutU16(off+2, e.End, octets.LittleEndian)
		b.PutBytes(off+4, e.Value)
		off += elemSize
	}
	return ReadByGroupTypeResp{p}, nil
}
func (r ReadByGroupTypeResp) ElementSize() int {
	v, _ := r.buf.GetU8(1)
	return int(v)
}
func (r ReadByGroupTypeResp) ElementCount() int { return (r.buf.Size() - 2) / r.ElementSize() }
func (r ReadByGroupTypeResp) Element(i int) GroupElement {
	elemSize := r.ElementSize()
	off := 2 + i*elemSize
	s, _ := r.buf.GetU16(off, octets.LittleEndian)
	e, _ := r.buf.GetU16(off+2, octets.LittleEndian)
	raw, _ := r.buf.GetBytes(off+4, elemSize-4)
	return GroupElement{Start: s, End: e, Value: raw.Bytes()}
}

// --- Read / Read Blob ---

type ReadReq struct{ PDU }

func NewReadReq(handle uint16) ReadReq {
	p, b := newPDU(OpReadReq, 2)
	b.PutU16(1, handle, octets.LittleEndian)
	return ReadReq{p}
}
func (r ReadReq) Handle() uint16 {
	v, _ := r.buf.GetU16(1, octets.LittleEndian)
	return v
}

type ReadResp struct{ PDU }

func NewReadResp(value []byte) ReadResp {
	p, b := newPDU(OpReadResp, len(value))
	b.PutBytes(1, value)
	return ReadResp{p}
}
func (r ReadResp) Value() []byte {
	raw, _ := r.buf.GetBytes(1, r.buf.Size()-1)
	return raw.Bytes()
}

type ReadBlobReq struct{ PDU }

func NewReadBlobReq(handle, offset uint16) ReadBlobReq {
	p, b := newPDU(OpReadBlobReq, 4)
	b.PutU16(1, handle, octets.LittleEndian)
	b.PutU16(3, offset, octets.LittleEndian)
	return ReadBlobReq{p}
}
func (r ReadBlobReq) Handle() uint16 {
	v, _ := r.buf.GetU16(1, octets.LittleEndian)
	return v
}
func (r ReadBlobReq) Offset() uint16 {
	v, _ := r.buf.GetU16(3, octets.LittleEndian)
	return v
}

type ReadBlobResp struct{ PDU }

func NewReadBlobResp(value []byte) ReadBlobResp {
	p, b := newPDU(OpReadBlobResp, len(value))
	b.PutBytes(1, value)
	return ReadBlobResp{p}
}
func (r ReadBlobResp) Value() []byte {
	raw, _ := r.buf.GetBytes(1, r.buf.Size()-1)
	return raw.Bytes()
}

// --- Write / Write Command ---

type writeLike struct{ PDU }

func (w writeLike) Handle() uint16 {
	v, _ := w.buf.GetU16(1, octets.LittleEndian)
	return v
}
func (w writeLike) Value() []byte {
	raw, _ := w.buf.GetBytes(3, w.buf.Size()-3)
	return raw.Bytes()
}

type WriteReq struct{ writeLike }

func NewWriteReq(handle uint16, value []byte) WriteReq {
	p, b := newPDU(OpWriteReq, 2+len(value))
	b.PutU16(1, handle, octets.LittleEndian)
	b.PutBytes(3, value)
	return WriteReq{writeLike{p}}
}

type WriteCmd struct{ writeLike }

func NewWriteCmd(handle uint16, value []byte) WriteCmd {
	p, b := newPDU(OpWriteCmd, 2+len(value))
	b.PutU16(1, handle, octets.LittleEndian)
	b.PutBytes(3, value)
	return WriteCmd{writeLike{p}}
}

type WriteResp struct{ PDU }

func NewWriteResp() WriteResp {
	p, _ := newPDU(OpWriteResp, 0)
	return WriteResp{p}
}

// --- Prepare / Execute Write ---

type PrepareWriteReq struct{ PDU }

func NewPrepareWriteReq(handle, offset uint16, value []byte) PrepareWriteReq {
	p, b := newPDU(OpPrepWriteReq, 4+len(value))
	b.PutU16(1, handle, octets.LittleEndian)
	b.PutU16(3, offset, octets.LittleEndian)
	b.PutBytes(5, value)
	return PrepareWriteReq{p}
}
func (r PrepareWriteReq) Handle() uint16 {
	v, _ := r.buf.GetU16(1, octets.LittleEndian)
	return v
}
func (r PrepareWriteReq) Offset() uint16 {
	v, _ := r.buf.GetU16(3, octets.LittleEndian)
	return v
}
func (r PrepareWriteReq) Value() []byte {
	raw, _ := r.buf.GetBytes(5, r.buf.Size()-5)
	return raw.Bytes()
}

// PrepareWriteResp echoes the request exactly (spec.md §4.8.2).
type PrepareWriteResp struct{ PDU }

func NewPrepareWriteResp(handle, offset uint16, value []byte) PrepareWriteResp {
	p, b := newPDU(OpPrepWriteResp, 4+len(value))
	b.PutU16(1, handle, octets.LittleEndian)
	b.PutU16(3, offset, octets.LittleEndian)
	b.PutBytes(5, value)
	return PrepareWriteResp{p}
}
func (r PrepareWriteResp) Handle() uint16 {
	v, _ := r.buf.GetU16(1, octets.LittleEndian)
	return v
}
func (r PrepareWriteResp) Offset() uint16 {
	v, _ := r.buf.GetU16(3, octets.LittleEndian)
	return v
}
func (r PrepareWriteResp) Value() []byte {
	raw, _ := r.buf.GetBytes(5, r.buf.Size()-5)
	return raw.Bytes()
}

// ExecuteWriteFlag selects commit (0x01) or cancel (0x00) of all queued
// prepared writes.
type ExecuteWriteFlag byte

const (
	ExecuteWriteCancel ExecuteWriteFlag = 0x00
	ExecuteWriteCommit ExecuteWriteFlag = 0x01
)

type ExecuteWriteReq struct{ PDU }

func NewExecuteWriteReq(flag ExecuteWriteFlag) ExecuteWriteReq {
	p, b := newPDU(OpExecWriteReq, 1)
	b.PutU8(1, byte(flag))
	return ExecuteWriteReq{p}
}
func (r ExecuteWriteReq) Flag() ExecuteWriteFlag {
	v, _ := r.buf.GetU8(1)
	return ExecuteWriteFlag(v)
}

type ExecuteWriteResp struct{ PDU }

func NewExecuteWriteResp() ExecuteWriteResp {
	p, _ := newPDU(OpExecWriteResp, 0)
	return ExecuteWriteResp{p}
}

// --- Notification / Indication / Confirmation ---

type handleValue struct{ PDU }

func (n handleValue) Handle() uint16 {
	v, _ := n.buf.GetU16(1, octets.LittleEndian)
	return v
}
func (n handleValue) Value() []byte {
	raw, _ := n.buf.GetBytes(3, n.buf.Size()-3)
	return raw.Bytes()
}

type HandleValueNotification struct{ handleValue }

func NewHandleValueNotification(handle uint16, value []byte) HandleValueNotification {
	p, b := newPDU(OpHandleValueNotify, 2+len(value))
	b.PutU16(1, handle, octets.LittleEndian)
	b.PutBytes(3, value)
	return HandleValueNotification{handleValue{p}}
}

type HandleValueIndication struct{ handleValue }

func NewHandleValueIndication(handle uint16, value []byte) HandleValueIndication {
	p, b := newPDU(OpHandleValueInd, 2+len(value))
	b.PutU16(1, handle, octets.LittleEndian)
	b.PutBytes(3, value)
	return HandleValueIndication{handleValue{p}}
}

type HandleValueConfirmation struct{ PDU }

func NewHandleValueConfirmation() HandleValueConfirmation {
	p, _ := newPDU(OpHandleValueCfm, 0)
	return HandleValueConfirmation{p}
}

// --- parsing ---

// Parse classifies a raw wire PDU by its opcode byte and returns the
// generic PDU view; callers type-assert/re-wrap via the Parse* helpers below
// once they know which opcode they're expecting. Parse itself never
// fails on a well-formed non-empty buffer; malformed PDUs are caught by
// the specific accessor's bounds checks at first use (spec.md ErrInvalidPDU
// is raised by the caller when that happens).
func Parse(b []byte) (PDU, error) {
	if len(b) == 0 {
		return PDU{}, fmt.Errorf("att: empty PDU")
	}
	return fromBytes(b), nil
}

// Parse* helpers re-wrap a raw PDU already known (by opcode) to be of a
// specific type. They never fail on non-empty input; a malformed payload
// surfaces as a bounds failure from the specific accessor used afterward.

func ParseExchangeMTUReq(b []byte) ExchangeMTUReq   { return ExchangeMTUReq{fromBytes(b)} }
func ParseExchangeMTUResp(b []byte) ExchangeMTUResp { return ExchangeMTUResp{fromBytes(b)} }
func ParseFindInfoReq(b []byte) FindInfoReq         { return FindInfoReq{fromBytes(b)} }
func ParseFindInfoResp(b []byte) FindInfoResp       { return FindInfoResp{fromBytes(b)} }
func ParseFindByTypeValueReq(b []byte) FindByTypeValueReq   { return FindByTypeValueReq{fromBytes(b)} }
func ParseFindByTypeValueResp(b []byte) FindByTypeValueResp { return FindByTypeValueResp{fromBytes(b)} }
func ParseReadByTypeReq(b []byte) ReadByTypeReq           { return ReadByTypeReq{fromBytes(b)} }
func ParseReadByTypeResp(b []byte) ReadByTypeResp         { return ReadByTypeResp{fromBytes(b)} }
func ParseReadByGroupTypeReq(b []byte) ReadByGroupTypeReq   { return ReadByGroupTypeReq{fromBytes(b)} }
func ParseReadByGroupTypeResp(b []byte) ReadByGroupTypeResp { return ReadByGroupTypeResp{fromBytes(b)} }
func ParseReadReq(b []byte) ReadReq         { return ReadReq{fromBytes(b)} }
func ParseReadResp(b []byte) ReadResp       { return ReadResp{fromBytes(b)} }
func ParseReadBlobReq(b []byte) ReadBlobReq { return ReadBlobReq{fromBytes(b)} }
func ParseReadBlobResp(b []byte) ReadBlobResp { return ReadBlobResp{fromBytes(b)} }
func ParseWriteReq(b []byte) WriteReq { return WriteReq{writeLike{fromBytes(b)}} }
func ParseWriteCmd(b []byte) WriteCmd { return WriteCmd{writeLike{fromBytes(b)}} }
func ParseWriteResp(b []byte) WriteResp { return WriteResp{fromBytes(b)} }
func ParsePrepareWriteReq(b []byte) PrepareWriteReq   { return PrepareWriteReq{fromBytes(b)} }
func ParsePrepareWriteResp(b []byte) PrepareWriteResp { return PrepareWriteResp{fromBytes(b)} }
func ParseExecuteWriteReq(b []byte) ExecuteWriteReq   { return ExecuteWriteReq{fromBytes(b)} }
func ParseExecuteWriteResp(b []byte) ExecuteWriteResp { return ExecuteWriteResp{fromBytes(b)} }
func ParseHandleValueNotification(b []byte) HandleValueNotification {
	return HandleValueNotification{handleValue{fromBytes(b)}}
}
func ParseHandleValueIndication(b []byte) HandleValueIndication {
	return HandleValueIndication{handleValue{fromBytes(b)}}
}
func ParseHandleValueConfirmation(b []byte) HandleValueConfirmation {
	return HandleValueConfirmation{fromBytes(b)}
}
func ParseErrorResp(b []byte) ErrorResp { return ErrorResp{fromBytes(b)} }

// ReadHandleRange is a convenience used by the server dispatcher to read
// the (start, end) handle pair present at the front of every *Req PDU that
// shares that layout, mirroring teacher's readHandleRange in l2cap.go.
func ReadHandleRange(b []byte) (start, end uint16) {
	return binary.LittleEndian.Uint16(b[1:3]), binary.LittleEndian.Uint16(b[3:5])
}
