package wsclient

import "github.com/shopspring/decimal"

// AdapterReply is returned by Adapter.HandlePlatformMessage when the
// adapter wants a frame sent back to the peer in response to an
// inbound message (e.g. a protocol-level ping/pong not handled by the
// transport itself).
type AdapterReply struct {
	Frame *Frame
}

// Adapter is the platform adapter interface. The core never
// interprets application-level message schemas itself; it routes
// decoded frames here and encodes outbound auth/subscription intents
// through it.
type Adapter interface {
	Init(config map[string]any) (any, error)
	HandlePlatformMessage(message []byte, state any) (reply *AdapterReply, next any, err error)
	EncodeAuthRequest(credentials any) (*Frame, error)
	EncodeSubscriptionRequest(channel string, params map[string]decimal.Decimal) (*Frame, error)
	EncodeUnsubscriptionRequest(channel string) (*Frame, error)
}

// PassthroughAdapter is a minimal Adapter that performs no message
// interpretation of its own; HandlePlatformMessage always reports ok
// with the state unchanged, letting the callback sink receive the raw
// frame via websocket_frame. Useful as the default when a host has no
// platform-specific schema to enforce.
type PassthroughAdapter struct{}

func (PassthroughAdapter) Init(map[string]any) (any, error) { return nil, nil }

func (PassthroughAdapter) HandlePlatformMessage(_ []byte, state any) (*AdapterReply, any, error) {
	return nil, state, nil
}

func (PassthroughAdapter) EncodeAuthRequest(credentials any) (*Frame, error) {
	data, ok := credentials.([]byte)
	if !ok {
		return nil, errInvalidAdapterCredentials
	}
	return &Frame{Opcode: OpcodeText, Data: data}, nil
}

func (PassthroughAdapter) EncodeSubscriptionRequest(channel string, _ map[string]decimal.Decimal) (*Frame, error) {
	return &Frame{Opcode: OpcodeText, Data: []byte("subscribe:" + channel)}, nil
}

func (PassthroughAdapter) EncodeUnsubscriptionRequest(channel string) (*Frame, error) {
	return &Frame{Opcode: OpcodeText, Data: []byte("unsubscribe:" + channel)}, nil
}
