package att

import (
	"bytes"
	"testing"

	"github.com/XC-/dbt/uuid"
)

func TestErrorRespRoundTrip(t *testing.T) {
	e := NewErrorResp(OpReadReq, 0x0042, ErrInvalidHandle)
	got := ErrorResp{fromBytes(e.Bytes())}
	if got.RequestOpcode() != OpReadReq {
		t.Errorf("RequestOpcode: got %v", got.RequestOpcode())
	}
	if got.Handle() != 0x0042 {
		t.Errorf("Handle: got %#x", got.Handle())
	}
	if got.ErrorCode() != ErrInvalidHandle {
		t.Errorf("ErrorCode: got %v", got.ErrorCode())
	}
	if got.Opcode() != OpError {
		t.Errorf("Opcode: got %v", got.Opcode())
	}
}

func TestExchangeMTURoundTrip(t *testing.T) {
	req := NewExchangeMTUReq(247)
	if req.ClientMTU() != 247 {
		t.Fatalf("ClientMTU: got %d", req.ClientMTU())
	}
	got := ExchangeMTUReq{fromBytes(req.Bytes())}
	if got.ClientMTU() != 247 {
		t.Errorf("round trip ClientMTU: got %d", got.ClientMTU())
	}

	resp := NewExchangeMTUResp(185)
	gotResp := ExchangeMTUResp{fromBytes(resp.Bytes())}
	if gotResp.ServerMTU() != 185 {
		t.Errorf("round trip ServerMTU: got %d", gotResp.ServerMTU())
	}
}

func TestFindInfoRespRoundTrip16(t *testing.T) {
	pairs := []InfoPair{
		{Handle: 1, Type: uuid.UUID16(0x2800)},
		{Handle: 3, Type: uuid.UUID16(0x2803)},
	}
	resp, err := NewFindInfoResp(pairs)
	if err != nil {
		t.Fatalf("NewFindInfoResp: %v", err)
	}
	got := FindInfoResp{fromBytes(resp.Bytes())}
	if got.ElementCount() != 2 {
		t.Fatalf("ElementCount: got %d", got.ElementCount())
	}
	for i, want := range pairs {
		e := got.Element(i)
		if e.Handle != want.Handle || !e.Type.Equal(want.Type) {
			t.Errorf("Element(%d): got %+v want %+v", i, e, want)
		}
	}
}

func TestFindInfoRespRejectsMixedSizes(t *testing.T) {
	pairs := []InfoPair{
		{Handle: 1, Type: uuid.UUID16(0x2800)},
		{Handle: 3, Type: uuid.MustParseUUID("0000180F-0000-1000-8000-00805F9B34FB")},
	}
	if _, err := NewFindInfoResp(pairs); err == nil {
		t.Fatalf("expected error for mixed uuid sizes")
	}
}

func TestFindByTypeValueRoundTrip(t *testing.T) {
	req := NewFindByTypeValueReq(1, 0xFFFF, uuid.UUID16(0x2800), []byte{0xAA, 0xBB})
	got := FindByTypeValueReq{fromBytes(req.Bytes())}
	if got.StartHandle() != 1 || got.EndHandle() != 0xFFFF {
		t.Errorf("handles: got %d,%d", got.StartHandle(), got.EndHandle())
	}
	if !got.Type().Equal(uuid.UUID16(0x2800)) {
		t.Errorf("Type: got %v", got.Type())
	}
	if !bytes.Equal(got.Value(), []byte{0xAA, 0xBB}) {
		t.Errorf("Value: got %x", got.Value())
	}

	resp := NewFindByTypeValueResp([]HandleGroup{{Found: 5, GroupEnd: 9}})
	gotResp := FindByTypeValueResp{fromBytes(resp.Bytes())}
	if gotResp.ElementCount() != 1 {
		t.Fatalf("ElementCount: got %d", gotResp.ElementCount())
	}
	if g := gotResp.Element(0); g.Found != 5 || g.GroupEnd != 9 {
		t.Errorf("Element(0): got %+v", g)
	}
}

func TestReadByTypeRoundTrip(t *testing.T) {
	req := NewReadByTypeReq(1, 0xFFFF, uuid.UUID16(0x2803))
	got := ReadByTypeReq{fromBytes(req.Bytes())}
	if !got.Type().Equal(uuid.UUID16(0x2803)) {
		t.Errorf("Type: got %v", got.Type())
	}

	elems := []TypeElement{
		{Handle: 2, Value: []byte{0x02, 0x03, 0x00, 0x29, 0x2A}},
		{Handle: 4, Value: []byte{0x10, 0x00, 0x00, 0x2A, 0x2B}},
	}
	resp, err := NewReadByTypeResp(elems)
	if err != nil {
		t.Fatalf("NewReadByTypeResp: %v", err)
	}
	gotResp := ReadByTypeResp{fromBytes(resp.Bytes())}
	if gotResp.ElementSize() != 7 {
		t.Fatalf("ElementSize: got %d", gotResp.ElementSize())
	}
	if gotResp.ElementCount() != 2 {
		t.Fatalf("ElementCount: got %d", gotResp.ElementCount())
	}
	for i, want := range elems {
		e := gotResp.Element(i)
		if e.Handle != want.Handle || !bytes.Equal(e.Value, want.Value) {
			t.Errorf("Element(%d): got %+v want %+v", i, e, want)
		}
	}
}

func TestReadByGroupTypeRoundTrip(t *testing.T) {
	req := NewReadByGroupTypeReq(1, 0xFFFF, uuid.UUID16(0x2800))
	got := ReadByGroupTypeReq{fromBytes(req.Bytes())}
	if !got.GroupType().Equal(uuid.UUID16(0x2800)) {
		t.Errorf("GroupType: got %v", got.GroupType())
	}

	elems := []GroupElement{
		{Start: 1, End: 5, Value: uuid.UUID16(0x180F).LittleEndianBytes()},
		{Start: 6, End: 10, Value: uuid.UUID16(0x1800).LittleEndianBytes()},
	}
	resp, err := NewReadByGroupTypeResp(elems)
	if err != nil {
		t.Fatalf("NewReadByGroupTypeResp: %v", err)
	}
	gotResp := ReadByGroupTypeResp{fromBytes(resp.Bytes())}
	if gotResp.ElementCount() != 2 {
		t.Fatalf("ElementCount: got %d", gotResp.ElementCount())
	}
	if e := gotResp.Element(1); e.Start != 6 || e.End != 10 {
		t.Errorf("Element(1): got %+v", e)
	}
}

func TestReadReqRespRoundTrip(t *testing.T) {
	req := NewReadReq(0x0010)
	got := ReadReq{fromBytes(req.Bytes())}
	if got.Handle() != 0x0010 {
		t.Errorf("Handle: got %#x", got.Handle())
	}

	resp := NewReadResp([]byte("hello"))
	gotResp := ReadResp{fromBytes(resp.Bytes())}
	if string(gotResp.Value()) != "hello" {
		t.Errorf("Value: got %q", gotResp.Value())
	}
}

func TestReadBlobRoundTrip(t *testing.T) {
	req := NewReadBlobReq(0x0020, 22)
	got := ReadBlobReq{fromBytes(req.Bytes())}
	if got.Handle() != 0x0020 || got.Offset() != 22 {
		t.Errorf("got handle=%#x offset=%d", got.Handle(), got.Offset())
	}
	resp := NewReadBlobResp([]byte("rest"))
	gotResp := ReadBlobResp{fromBytes(resp.Bytes())}
	if string(gotResp.Value()) != "rest" {
		t.Errorf("Value: got %q", gotResp.Value())
	}
}

func TestWriteReqCmdRoundTrip(t *testing.T) {
	req := NewWriteReq(0x0030, []byte{1, 2, 3})
	got := WriteReq{writeLike{fromBytes(req.Bytes())}}
	if got.Handle() != 0x0030 || !bytes.Equal(got.Value(), []byte{1, 2, 3}) {
		t.Errorf("WriteReq: handle=%#x value=%x", got.Handle(), got.Value())
	}
	if got.Opcode() != OpWriteReq {
		t.Errorf("Opcode: got %v", got.Opcode())
	}

	cmd := NewWriteCmd(0x0031, []byte{9})
	gotCmd := WriteCmd{writeLike{fromBytes(cmd.Bytes())}}
	if gotCmd.Opcode() != OpWriteCmd {
		t.Errorf("Opcode: got %v", gotCmd.Opcode())
	}

	resp := NewWriteResp()
	if resp.Opcode() != OpWriteResp || resp.Len() != 1 {
		t.Errorf("WriteResp: opcode=%v len=%d", resp.Opcode(), resp.Len())
	}
}

func TestPrepareExecuteWriteRoundTrip(t *testing.T) {
	req := NewPrepareWriteReq(0x0040, 16, []byte{0xDE, 0xAD})
	got := PrepareWriteReq{fromBytes(req.Bytes())}
	if got.Handle() != 0x0040 || got.Offset() != 16 || !bytes.Equal(got.Value(), []byte{0xDE, 0xAD}) {
		t.Errorf("PrepareWriteReq: got %+v", got)
	}

	resp := NewPrepareWriteResp(0x0040, 16, []byte{0xDE, 0xAD})
	gotResp := PrepareWriteResp{fromBytes(resp.Bytes())}
	if gotResp.Handle() != 0x0040 || gotResp.Offset() != 16 {
		t.Errorf("PrepareWriteResp echo mismatch: got %+v", gotResp)
	}

	exec := NewExecuteWriteReq(ExecuteWriteCommit)
	gotExec := ExecuteWriteReq{fromBytes(exec.Bytes())}
	if gotExec.Flag() != ExecuteWriteCommit {
		t.Errorf("Flag: got %v", gotExec.Flag())
	}

	execResp := NewExecuteWriteResp()
	if execResp.Opcode() != OpExecWriteResp {
		t.Errorf("Opcode: got %v", execResp.Opcode())
	}
}

func TestHandleValueRoundTrip(t *testing.T) {
	notif := NewHandleValueNotification(0x0050, []byte{1, 2})
	got := HandleValueNotification{handleValue{fromBytes(notif.Bytes())}}
	if got.Handle() != 0x0050 || !bytes.Equal(got.Value(), []byte{1, 2}) {
		t.Errorf("Notification: got %+v", got)
	}
	if got.Opcode() != OpHandleValueNotify {
		t.Errorf("Opcode: got %v", got.Opcode())
	}

	ind := NewHandleValueIndication(0x0051, []byte{3, 4})
	gotInd := HandleValueIndication{handleValue{fromBytes(ind.Bytes())}}
	if gotInd.Opcode() != OpHandleValueInd {
		t.Errorf("Opcode: got %v", gotInd.Opcode())
	}

	cfm := NewHandleValueConfirmation()
	if cfm.Opcode() != OpHandleValueCfm || cfm.Len() != 1 {
		t.Errorf("Confirmation: opcode=%v len=%d", cfm.Opcode(), cfm.Len())
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Fatalf("expected error parsing empty PDU")
	}
}

func TestParseClassifiesOpcode(t *testing.T) {
	req := NewReadReq(1)
	p, err := Parse(req.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Opcode() != OpReadReq {
		t.Errorf("Opcode: got %v", p.Opcode())
	}
	if !IsRequest(p.Opcode()) {
		t.Errorf("expected ReadReq to be a request")
	}
	if r, ok := RespFor(p.Opcode()); !ok || r != OpReadResp {
		t.Errorf("RespFor: got %v, %v", r, ok)
	}
}

func TestReadHandleRange(t *testing.T) {
	req := NewReadByTypeReq(0x0001, 0x000A, uuid.UUID16(0x2803))
	start, end := ReadHandleRange(req.Bytes())
	if start != 1 || end != 10 {
		t.Errorf("ReadHandleRange: got %d,%d", start, end)
	}
}
