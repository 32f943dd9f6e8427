// Package att implements the Attribute Protocol PDU codec: parsing and
// serializing every ATT opcode used by the GATT client/server into typed
// views over an owned octets.Buffer.
package att

// Opcode is a raw ATT PDU opcode byte.
type Opcode byte

// Opcode values, per the Bluetooth Core Specification attribute protocol.
const (
	OpError              Opcode = 0x01
	OpMTUReq             Opcode = 0x02
	OpMTUResp            Opcode = 0x03
	OpFindInfoReq        Opcode = 0x04
	OpFindInfoResp       Opcode = 0x05
	OpFindByTypeValueReq Opcode = 0x06
	OpFindByTypeValueRsp Opcode = 0x07
	OpReadByTypeReq      Opcode = 0x08
	OpReadByTypeResp     Opcode = 0x09
	OpReadReq            Opcode = 0x0A
	OpReadResp           Opcode = 0x0B
	OpReadBlobReq        Opcode = 0x0C
	OpReadBlobResp       Opcode = 0x0D
	OpReadMultiReq       Opcode = 0x0E
	OpReadMultiResp      Opcode = 0x0F
	OpReadByGroupReq     Opcode = 0x10
	OpReadByGroupResp    Opcode = 0x11
	OpWriteReq           Opcode = 0x12
	OpWriteResp          Opcode = 0x13
	OpPrepWriteReq       Opcode = 0x16
	OpPrepWriteResp      Opcode = 0x17
	OpExecWriteReq       Opcode = 0x18
	OpExecWriteResp      Opcode = 0x19
	OpHandleValueNotify  Opcode = 0x1B
	OpHandleValueInd     Opcode = 0x1D
	OpHandleValueCfm     Opcode = 0x1E
	OpWriteCmd           Opcode = 0x52
	OpSignedWriteCmd     Opcode = 0xD2
	OpReadMultiVarReq    Opcode = 0x20
	OpReadMultiVarResp   Opcode = 0x21
)

// Class groups opcodes the way spec.md §4.3 names them.
type Class int

const (
	ClassRequest Class = iota
	ClassResponse
	ClassCommand
	ClassNotification
	ClassIndication
	ClassConfirmation
	// ClassUnknown is every opcode this port does not model (including
	// MULTIPLE_HANDLE_VALUE_NTF, which has no opcode constant at all).
	// It is deliberately not ClassResponse: an unmodeled PDU must never
	// reach the request/reply correlator ring, only be logged and
	// discarded (spec.md §4.10).
	ClassUnknown
)

// ClassOf reports the PDU class of an opcode, used by the connection
// reader to route a freshly-parsed PDU (spec.md §4.10).
func ClassOf(op Opcode) Class {
	switch op {
	case OpMTUReq, OpFindInfoReq, OpFindByTypeValueReq, OpReadByTypeReq,
		OpReadReq, OpReadBlobReq, OpReadMultiReq, OpReadByGroupReq,
		OpWriteReq, OpPrepWriteReq, OpExecWriteReq, OpReadMultiVarReq:
		return ClassRequest
	case OpMTUResp, OpFindInfoResp, OpFindByTypeValueRsp, OpReadByTypeResp,
		OpReadResp, OpReadBlobResp, OpReadMultiResp, OpReadByGroupResp,
		OpWriteResp, OpPrepWriteResp, OpExecWriteResp, OpError, OpReadMultiVarResp:
		return ClassResponse
	case OpWriteCmd, OpSignedWriteCmd:
		return ClassCommand
	case OpHandleValueNotify:
		return ClassNotification
	case OpHandleValueInd:
		return ClassIndication
	case OpHandleValueCfm:
		return ClassConfirmation
	default:
		return ClassUnknown
	}
}

// IsRequest reports whether op is a request PDU, requiring exactly one
// response or error PDU.
func IsRequest(op Opcode) bool { return ClassOf(op) == ClassRequest }

// respFor maps a request opcode to its success-response opcode, mirroring
// the teacher's attRespFor table (const.go).
var respFor = map[Opcode]Opcode{
	OpMTUReq:             OpMTUResp,
	OpFindInfoReq:        OpFindInfoResp,
	OpFindByTypeValueReq: OpFindByTypeValueRsp,
	OpReadByTypeReq:      OpReadByTypeResp,
	OpReadReq:            OpReadResp,
	OpReadBlobReq:        OpReadBlobResp,
	OpReadMultiReq:       OpReadMultiResp,
	OpReadByGroupReq:     OpReadByGroupResp,
	OpWriteReq:           OpWriteResp,
	OpPrepWriteReq:       OpPrepWriteResp,
	OpExecWriteReq:       OpExecWriteResp,
	OpReadMultiVarReq:    OpReadMultiVarResp,
}

// RespFor returns the expected success-response opcode for a request
// opcode, and ok=false if op is not a request.
func RespFor(op Opcode) (Opcode, bool) {
	r, ok := respFor[op]
	return r, ok
}

func (op Opcode) String() string {
	switch op {
	case OpError:
		return "Error"
	case OpMTUReq:
		return "ExchangeMTUReq"
	case OpMTUResp:
		return "ExchangeMTUResp"
	case OpFindInfoReq:
		return "FindInformationReq"
	case OpFindInfoResp:
		return "FindInformationResp"
	case OpFindByTypeValueReq:
		return "FindByTypeValueReq"
	case OpFindByTypeValueRsp:
		return "FindByTypeValueResp"
	case OpReadByTypeReq:
		return "ReadByTypeReq"
	case OpReadByTypeResp:
		return "ReadByTypeResp"
	case OpReadReq:
		return "ReadReq"
	case OpReadResp:
		return "ReadResp"
	case OpReadBlobReq:
		return "ReadBlobReq"
	case OpReadBlobResp:
		return "ReadBlobResp"
	case OpReadMultiReq:
		return "ReadMultipleReq"
	case OpReadMultiResp:
		return "ReadMultipleResp"
	case OpReadByGroupReq:
		return "ReadByGroupTypeReq"
	case OpReadByGroupResp:
		return "ReadByGroupTypeResp"
	case OpWriteReq:
		return "WriteReq"
	case OpWriteResp:
		return "WriteResp"
	case OpPrepWriteReq:
		return "PrepareWriteReq"
	case OpPrepWriteResp:
		return "PrepareWriteResp"
	case OpExecWriteReq:
		return "ExecuteWriteReq"
	case OpExecWriteResp:
		return "ExecuteWriteResp"
	case OpHandleValueNotify:
		return "HandleValueNotification"
	case OpHandleValueInd:
		return "HandleValueIndication"
	case OpHandleValueCfm:
		return "HandleValueConfirmation"
	case OpWriteCmd:
		return "WriteCommand"
	case OpSignedWriteCmd:
		return "SignedWriteCommand"
	case OpReadMultiVarReq:
		return "ReadMultipleVariableReq"
	case OpReadMultiVarResp:
		return "ReadMultipleVariableResp"
	default:
		return "Unknown"
	}
}
