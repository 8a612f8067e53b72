package wsclient

import "github.com/thrasher-corp/wsresilient/frame"

// Frame, Opcode and Validate are re-exported from package frame so the
// rest of wsclient can speak in terms of frames without every file
// importing the codec package directly. The codec itself stays
// transport- and connection-agnostic.
type Frame = frame.Frame
type Opcode = frame.Opcode

const (
	OpcodeText   = frame.Text
	OpcodeBinary = frame.Binary
	OpcodePing   = frame.Ping
	OpcodePong   = frame.Pong
	OpcodeClose  = frame.Close
)

// Validate delegates to frame.Validate.
func Validate(f Frame) error { return frame.Validate(f) }

// ErrInvalidFrame is re-exported for callers that want to compare
// against it without importing package frame themselves.
var ErrInvalidFrame = frame.ErrInvalidFrame
