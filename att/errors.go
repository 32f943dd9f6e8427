package att

// ErrorCode is an ATT error code, sent back to a peer inside an Error
// Response PDU (spec.md §4.3).
type ErrorCode byte

const (
	ErrNoError                ErrorCode = 0x00
	ErrInvalidHandle          ErrorCode = 0x01
	ErrNoReadPerm             ErrorCode = 0x02
	ErrNoWritePerm            ErrorCode = 0x03
	ErrInvalidPDU             ErrorCode = 0x04
	ErrAuthentication         ErrorCode = 0x05
	ErrUnsupportedRequest     ErrorCode = 0x06
	ErrInvalidOffset          ErrorCode = 0x07
	ErrAuthorization          ErrorCode = 0x08
	ErrPrepareQueueFull       ErrorCode = 0x09
	ErrAttributeNotFound      ErrorCode = 0x0A
	ErrAttributeNotLong       ErrorCode = 0x0B
	ErrInsufficientEncKeySize ErrorCode = 0x0C
	ErrInvalidAttributeLen    ErrorCode = 0x0D
	ErrUnlikelyError          ErrorCode = 0x0E
	ErrInsufficientEncryption ErrorCode = 0x0F
	ErrUnsupportedGroupType   ErrorCode = 0x10
	ErrInsufficientResources  ErrorCode = 0x11
	ErrForbiddenValue         ErrorCode = 0xFD
)

func (e ErrorCode) String() string {
	switch e {
	case ErrNoError:
		return "Success"
	case ErrInvalidHandle:
		return "InvalidHandle"
	case ErrNoReadPerm:
		return "ReadNotPermitted"
	case ErrNoWritePerm:
		return "WriteNotPermitted"
	case ErrInvalidPDU:
		return "InvalidPDU"
	case ErrAuthentication:
		return "InsufficientAuthentication"
	case ErrUnsupportedRequest:
		return "RequestNotSupported"
	case ErrInvalidOffset:
		return "InvalidOffset"
	case ErrAuthorization:
		return "InsufficientAuthorization"
	case ErrPrepareQueueFull:
		return "PrepareQueueFull"
	case ErrAttributeNotFound:
		return "AttributeNotFound"
	case ErrAttributeNotLong:
		return "AttributeNotLong"
	case ErrInsufficientEncKeySize:
		return "InsufficientEncryptionKeySize"
	case ErrInvalidAttributeLen:
		return "InvalidAttributeValueLength"
	case ErrUnlikelyError:
		return "UnlikelyError"
	case ErrInsufficientEncryption:
		return "InsufficientEncryption"
	case ErrUnsupportedGroupType:
		return "UnsupportedGroupType"
	case ErrInsufficientResources:
		return "InsufficientResources"
	case ErrForbiddenValue:
		return "ForbiddenValue"
	default:
		return "Unknown"
	}
}
