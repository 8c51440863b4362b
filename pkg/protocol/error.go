package protocol

import "fmt"

// ErrorCode identifies the type of error carried by a FrameError.
type ErrorCode uint16

const (
	ErrUnknown        ErrorCode = 0x0000 // Unknown error
	ErrInvalidFrame   ErrorCode = 0x0001 // Malformed frame
	ErrInvalidPayload ErrorCode = 0x0002 // Malformed tree or patch payload
	ErrUnexpected     ErrorCode = 0x0003 // Frame type not valid in this direction
	ErrNotReady       ErrorCode = 0x0004 // Host not initialized
	ErrRenderCreate   ErrorCode = 0x0010 // Renderer failed to materialize a node
	ErrPathResolution ErrorCode = 0x0011 // Patch path did not resolve
	ErrRenderMutation ErrorCode = 0x0012 // Renderer failed to mutate a node
	ErrServerError    ErrorCode = 0x0100 // Internal error
	ErrTooLarge       ErrorCode = 0x0101 // Message exceeds a size limit
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrUnknown:
		return "Unknown"
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrInvalidPayload:
		return "InvalidPayload"
	case ErrUnexpected:
		return "Unexpected"
	case ErrNotReady:
		return "NotReady"
	case ErrRenderCreate:
		return "RenderCreate"
	case ErrPathResolution:
		return "PathResolution"
	case ErrRenderMutation:
		return "RenderMutation"
	case ErrServerError:
		return "ServerError"
	case ErrTooLarge:
		return "TooLarge"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", uint16(ec))
	}
}

// ErrorMessage is the payload of a FrameError.
type ErrorMessage struct {
	Seq     uint64    // Seq of the frame that failed, 0 if unknown
	Code    ErrorCode // Error code
	Message string    // Human-readable message
	Fatal   bool      // Peer should close the connection
}

// EncodeErrorMessage encodes em as a payload.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoderWithCap(16 + len(em.Message))
	e.WriteUvarint(em.Seq)
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage payload.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	var em ErrorMessage
	var err error

	if em.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	em.Code = ErrorCode(code)
	if em.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	if em.Fatal, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return &em, nil
}

// NewError creates a non-fatal ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError creates a fatal ErrorMessage.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return "fatal: " + em.Code.String() + ": " + em.Message
	}
	return em.Code.String() + ": " + em.Message
}

// IsFatal reports whether this error should close the connection.
func (em *ErrorMessage) IsFatal() bool {
	return em.Fatal
}
