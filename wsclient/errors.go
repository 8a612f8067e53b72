package wsclient

import "github.com/pkg/errors"

// Source classifies where an ErrorRecord originated.
type Source string

const (
	SourceTransport    Source = "transport"
	SourceProtocol     Source = "protocol"
	SourceAuth         Source = "auth"
	SourceSubscription Source = "subscription"
	SourceInternal     Source = "internal"
)

// Kind is a leaf in the error taxonomy. It intentionally is not an
// error type itself — ErrorRecord.Kind is compared with ==, while the
// Go errors returned from calls remain ordinary wrapped sentinels.
type Kind string

const (
	KindConnectRefused    Kind = "connect_refused"
	KindTLSHandshakeFailed Kind = "tls_handshake_failed"
	KindTransportDown     Kind = "transport_down"
	KindTimeoutConnect    Kind = "timeout_connect"

	KindInvalidFrame         Kind = "invalid_frame"
	KindInvalidTextData      Kind = "invalid_text_data"
	KindInvalidBinaryData    Kind = "invalid_binary_data"
	KindControlFrameTooLarge Kind = "control_frame_too_large"
	KindInvalidCloseCode     Kind = "invalid_close_code"
	KindReservedCloseCode    Kind = "reserved_close_code"
	KindUpgradeFailed        Kind = "upgrade_failed"
	KindTimeoutUpgrade       Kind = "timeout_upgrade"

	KindEncodeError  Kind = "encode_error"
	KindAuthRejected Kind = "auth_rejected"
	KindTokenExpired Kind = "token_expired"
	KindTimeoutAuth  Kind = "timeout_auth"

	KindSubscribeRejected  Kind = "subscribe_rejected"
	KindUnknownSubscription Kind = "unknown_subscription"
	KindReplayFailed       Kind = "replay_failed"

	KindTransitionError  Kind = "transition_error"
	KindAlreadyHandling  Kind = "already_handling"
	KindNoAuthHandler    Kind = "no_auth_handler"
)

// ErrorRecord carries the classification and context for one error
// observed on a Connection.
type ErrorRecord struct {
	Kind       Kind
	Source     Source
	Context    map[string]any
	OccurredAt int64 // unix nanos, stamped by the caller
}

func (e *ErrorRecord) Error() string {
	return string(e.Source) + "/" + string(e.Kind)
}

// NewErrorRecord builds an ErrorRecord, defaulting Context to an empty
// map so callers can always index it.
func NewErrorRecord(kind Kind, source Source, occurredAt int64) *ErrorRecord {
	return &ErrorRecord{Kind: kind, Source: source, Context: map[string]any{}, OccurredAt: occurredAt}
}

// Sentinel errors for Manager/Connection-level failures, in the flat
// package-level sentinel style checked with errors.Is throughout this
// package's tests.
var (
	ErrWebsocketNotEnabled  = errors.New("websocket is not enabled")
	ErrNotConnected         = errors.New("websocket is not connected")
	errAlreadyConnected     = errors.New("websocket is already connected")
	errAlreadyReconnecting  = errors.New("websocket is already reconnecting")
	ErrAlreadyDisabled      = errors.New("websocket is already disabled")
	ErrWebsocketAlreadyEnabled = errors.New("websocket is already enabled")
	errWebsocketAlreadyInitialised = errors.New("websocket already initialised")

	errExchangeConfigNameEmpty = errors.New("exchange config name is empty")
	errWebsocketConnectorUnset = errors.New("websocket connector function not set")
	errWebsocketSubscriberUnset = errors.New("websocket subscriber function not set")
	errWebsocketUnsubscriberUnset = errors.New("websocket unsubscriber function not set")
	errWebsocketDataHandlerUnset = errors.New("websocket data handler function not set")
	errDefaultURLIsEmpty = errors.New("default URL is empty")
	errRunningURLIsEmpty = errors.New("running URL is empty")
	errInvalidWebsocketURL = errors.New("invalid websocket URL")
	errInvalidTrafficTimeout = errors.New("invalid traffic timeout, must be positive")
	errSameProxyAddress = errors.New("cannot set proxy address to the same address")
	errInvalidMaxSubscriptions = errors.New("max subscriptions per connection must not be negative")

	ErrSubscriptionsNotAdded   = errors.New("subscriptions not added")
	ErrSubscriptionsNotRemoved = errors.New("subscriptions not removed")
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrSubscriptionDuplicate   = errors.New("subscription already exists")
	ErrUnknownSubscription     = errors.New("unknown subscription")

	ErrSignatureTimeout     = errors.New("signature timeout")
	ErrSignatureNotMatched  = errors.New("signature not matched")
	errInvalidBufferSize    = errors.New("invalid buffer size")
	errSignatureCollision   = errors.New("signature collision")

	errAlreadyHandling  = errors.New("already_handling")
	errNoAuthHandler    = errors.New("no_auth_handler")
	errNoEffectSender   = errors.New("no effect sender configured")

	ErrAuthRejected  = errors.New("authentication rejected")
	ErrTokenExpired  = errors.New("auth token expired")
	ErrTimeoutAuth   = errors.New("authentication timed out")

	errInvalidAdapterCredentials = errors.New("adapter: credentials must be []byte")
	errTrafficTimeout             = errors.New("no traffic received within timeout")
)

// TransitionError is raised whenever an event is applied to a state
// that has no legal transition for it
type TransitionError struct {
	From   State
	Event  string
	Reason string
}

func (e *TransitionError) Error() string {
	return "transition_error: from=" + e.From.String() + " event=" + e.Event + " reason=" + e.Reason
}
