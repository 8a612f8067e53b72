// Package frame implements the Frame Codec & Validator: validation,
// encoding and decoding of WebSocket frames, and close-code
// classification. It has no transport dependency of its own — the
// wire representation it produces/consumes is handed to whatever
// Transport the caller is using.
package frame

import (
	"github.com/pkg/errors"
)

// Opcode identifies the kind of a Frame.
type Opcode int

const (
	Text Opcode = iota
	Binary
	Ping
	Pong
	Close
)

func (o Opcode) String() string {
	switch o {
	case Text:
		return "text"
	case Binary:
		return "binary"
	case Ping:
		return "ping"
	case Pong:
		return "pong"
	case Close:
		return "close"
	default:
		return "unknown"
	}
}

// Frame is a single WebSocket frame as seen by the core. Close frames
// carry an optional code and reason; control frames (ping/pong/close)
// must not exceed maxControlPayload bytes.
type Frame struct {
	Opcode Opcode
	Data   []byte // text/binary payload, or close reason bytes
	Code   int    // meaningful only for Opcode == Close; 0 means "no code"
}

const maxControlPayload = 125

// Kind-of-error sentinels for frame validation failures.
var (
	ErrInvalidTextData      = errors.New("invalid_text_data")
	ErrInvalidBinaryData    = errors.New("invalid_binary_data")
	ErrControlFrameTooLarge = errors.New("control_frame_too_large")
	ErrInvalidCloseCode     = errors.New("invalid_close_code")
	ErrReservedCloseCode    = errors.New("reserved_close_code")
	ErrInvalidFrame         = errors.New("invalid_frame")
)

// reservedCloseCodes must never appear on the wire.
var reservedCloseCodes = map[int]bool{
	1004: true,
	1005: true,
	1006: true,
	1015: true,
}

// validCloseRange reports whether c falls in one of the close-code
// ranges allowed to be sent, ignoring reservation.
func validCloseRange(c int) bool {
	switch {
	case c >= 1000 && c <= 1003:
		return true
	case c >= 1007 && c <= 1014:
		return true
	case c >= 3000 && c <= 4999:
		return true
	default:
		return false
	}
}

// ValidateCloseCode rejects reserved and out-of-range close codes.
func ValidateCloseCode(c int) error {
	if reservedCloseCodes[c] {
		return errors.Wrapf(ErrReservedCloseCode, "code %d", c)
	}
	if !validCloseRange(c) {
		return errors.Wrapf(ErrInvalidCloseCode, "code %d", c)
	}
	return nil
}

// Validate enforces the frame-level invariants for each opcode.
func Validate(f Frame) error {
	switch f.Opcode {
	case Text:
		// Any byte sequence is accepted as text payload at this layer;
		// UTF-8 validity is the transport library's concern on the wire,
		// but a nil Data slice for a non-empty text frame is never valid.
		if f.Data == nil {
			return errors.Wrap(ErrInvalidTextData, "nil payload")
		}
	case Binary:
		if f.Data == nil {
			return errors.Wrap(ErrInvalidBinaryData, "nil payload")
		}
	case Ping, Pong:
		if len(f.Data) > maxControlPayload {
			return errors.Wrapf(ErrControlFrameTooLarge, "%d bytes", len(f.Data))
		}
	case Close:
		if len(f.Data) > maxControlPayload {
			return errors.Wrapf(ErrControlFrameTooLarge, "%d bytes", len(f.Data))
		}
		if f.Code != 0 {
			if err := ValidateCloseCode(f.Code); err != nil {
				return err
			}
		}
	default:
		return errors.Wrapf(ErrInvalidFrame, "opcode %v", f.Opcode)
	}
	return nil
}

// Encode normalizes a Frame for handoff to the transport. A close(code)
// frame with no reason is normalized to close(code, "") so that every
// encoded close frame carries an explicit (possibly empty) reason.
func Encode(f Frame) (Frame, error) {
	if err := Validate(f); err != nil {
		return Frame{}, err
	}
	if f.Opcode == Close && f.Code != 0 && f.Data == nil {
		f.Data = []byte{}
	}
	return f, nil
}

// Decode validates an inbound wire frame, rejecting anything that does
// not parse as one of the five frame shapes the core understands.
func Decode(wire Frame) (Frame, error) {
	if err := Validate(wire); err != nil {
		return Frame{}, errors.Wrap(ErrInvalidFrame, err.Error())
	}
	return wire, nil
}

// CloseCodeMeaning returns a short human-readable description of a
// close code, independent of whether it is legal to send.
func CloseCodeMeaning(code int) string {
	switch code {
	case 1000:
		return "normal closure"
	case 1001:
		return "going away"
	case 1002:
		return "protocol error"
	case 1003:
		return "unsupported data"
	case 1004:
		return "reserved"
	case 1005:
		return "no status received (reserved, not sendable)"
	case 1006:
		return "abnormal closure (reserved, not sendable)"
	case 1007:
		return "invalid frame payload data"
	case 1008:
		return "policy violation"
	case 1009:
		return "message too big"
	case 1010:
		return "mandatory extension"
	case 1011:
		return "internal server error"
	case 1012:
		return "service restart"
	case 1013:
		return "try again later"
	case 1014:
		return "bad gateway"
	case 1015:
		return "TLS handshake failure (reserved, not sendable)"
	default:
		if code >= 3000 && code <= 3999 {
			return "library/framework reserved"
		}
		if code >= 4000 && code <= 4999 {
			return "application reserved"
		}
		return "unknown close code"
	}
}
