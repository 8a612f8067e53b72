package wsclient

import "time"

// StreamRef identifies one upgraded websocket stream within a
// Connection. It is opaque to callers beyond equality comparison.
type StreamRef uint64

// CallbackSink is the outbound event channel to application code.
// Every method is best-effort and must not block the
// runtime task; implementations that need to do slow work should hand
// off to their own goroutine.
type CallbackSink interface {
	ConnectionUp(protocol string)
	ConnectionDown(reason string)
	WebsocketUpgrade(ref StreamRef, headers map[string][]string)
	WebsocketFrame(ref StreamRef, frame Frame)
	HTTPResponse(ref StreamRef, isFin bool, status int, headers map[string][]string)
	HTTPData(ref StreamRef, isFin bool, data []byte)
	Error(ref *StreamRef, reason error)
	ConnectionError(reason error)
	WebsocketUpgradeError(ref StreamRef, reason error)
	TransitionError(from State, event, reason string)
	OwnershipTransfer(host string, port int, streamCount int)
}

// NoopSink discards every event; it is the zero-value CallbackSink
// used when a Connection is constructed without one.
type NoopSink struct{}

func (NoopSink) ConnectionUp(string)                                   {}
func (NoopSink) ConnectionDown(string)                                 {}
func (NoopSink) WebsocketUpgrade(StreamRef, map[string][]string)       {}
func (NoopSink) WebsocketFrame(StreamRef, Frame)                       {}
func (NoopSink) HTTPResponse(StreamRef, bool, int, map[string][]string) {}
func (NoopSink) HTTPData(StreamRef, bool, []byte)                      {}
func (NoopSink) Error(*StreamRef, error)                               {}
func (NoopSink) ConnectionError(error)                                 {}
func (NoopSink) WebsocketUpgradeError(StreamRef, error)                {}
func (NoopSink) TransitionError(State, string, string)                 {}
func (NoopSink) OwnershipTransfer(string, int, int)                    {}

// TelemetryEvent is a single named, hierarchical measurement
// (connection.open, message.sent, ...).
type TelemetryEvent struct {
	Name     string
	Duration time.Duration
	Fields   map[string]any
}

// Reporter receives TelemetryEvents, threaded through the connection
// and subscription machinery rather than hardcoding a metrics backend.
type Reporter interface {
	Latency(name, message string, d time.Duration)
	Event(evt TelemetryEvent)
}

// NoopReporter discards everything; the default when a Connection is
// not given a Reporter.
type NoopReporter struct{}

func (NoopReporter) Latency(string, string, time.Duration) {}
func (NoopReporter) Event(TelemetryEvent)                  {}

// FuncReporter adapts a single callback into a Reporter, useful for
// tests and small hosts that just want one hook.
type FuncReporter func(evt TelemetryEvent)

func (f FuncReporter) Latency(name, message string, d time.Duration) {
	f(TelemetryEvent{Name: name, Duration: d, Fields: map[string]any{"message": message}})
}

func (f FuncReporter) Event(evt TelemetryEvent) { f(evt) }
