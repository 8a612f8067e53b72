package wsclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/wsresilient/internal/common"
)

// streamRecord tracks one upgraded stream's kind and handshake headers.
type streamRecord struct {
	ref    StreamRef
	kind   string // "http" | "websocket"
	headers http.Header
}

// ConnectionSetup is the construction-time configuration for a
// Connection: explicit, constructor-injected values rather than
// global configuration reads.
type ConnectionSetup struct {
	Endpoint EndpointOptions

	Transport   Transport
	Adapter     Adapter
	Policy      Policy
	AuthHandler AuthHandler
	SubHandler  SubscriptionHandler
	Sink        CallbackSink
	Reporter    Reporter

	AuthTimeout      time.Duration
	ReauthPollPeriod time.Duration
	MaxSubscriptions int
}

func (s *ConnectionSetup) fillDefaults() {
	if s.Sink == nil {
		s.Sink = NoopSink{}
	}
	if s.Reporter == nil {
		s.Reporter = NoopReporter{}
	}
	if s.Policy == nil {
		s.Policy = NewDefaultPolicy(0, 0, 0)
	}
	if s.Adapter == nil {
		s.Adapter = PassthroughAdapter{}
	}
	if s.ReauthPollPeriod <= 0 {
		s.ReauthPollPeriod = time.Minute
	}
}

// command is an asynchronous message sent to a Connection's mailbox
// from outside the runtime task.
type command struct {
	kind    string // "send", "subscribe", "unsubscribe", "close"
	payload any
	reply   chan error
}

// Connection is the logical session spanning reconnects, exclusively
// owning its streams, auth state and subscription registry for that
// lifetime. All mutation is funneled through Run, its single mailbox
// task.
type Connection struct {
	setup ConnectionSetup

	state atomicState

	mu              sync.RWMutex
	streams         map[StreamRef]streamRecord
	transportHandle any
	currentRef      StreamRef
	reconnectAttempts int
	lastError       *ErrorRecord

	match       *Match
	auth        *authFlow
	subs        *Registry
	policyState *PolicyState

	mailbox chan command
	done    chan struct{}
}

// NewConnection builds a Connection in the initialized state. Call
// Run in its own goroutine to start the runtime task, then Open to
// begin dialing.
func NewConnection(setup ConnectionSetup) *Connection {
	setup.fillDefaults()
	match := NewMatch()
	c := &Connection{
		setup:   setup,
		streams: make(map[StreamRef]streamRecord),
		match:   match,
		mailbox: make(chan command, 16),
		done:    make(chan struct{}),
		policyState: &PolicyState{},
	}
	if setup.AuthHandler != nil {
		c.auth = newAuthFlow(setup.AuthHandler, match, setup.AuthTimeout)
	}
	if setup.SubHandler != nil {
		c.subs = NewRegistry(setup.SubHandler)
	}
	return c
}

// State returns the Connection's current status.
func (c *Connection) State() State { return c.state.Load() }

// transition applies event to the Connection's state, recording and
// surfacing a transition_error if the event has no legal effect from
// the current state.
func (c *Connection) transition(event string) (State, error) {
	from := c.state.Load()
	to, ok := nextState(from, event)
	if !ok {
		reason := "no legal transition"
		c.setup.Sink.TransitionError(from, event, reason)
		return from, &TransitionError{From: from, Event: event, Reason: reason}
	}
	c.state.Store(to)
	return to, nil
}

// Run drives the runtime task: the single-threaded mailbox loop that
// owns every mutation to the Connection, its streams, auth state and
// subscription registry. It returns when ctx is cancelled or Close is
// requested.
func (c *Connection) Run(ctx context.Context) {
	defer close(c.done)
	var events <-chan TransportEvent
	if c.setup.Transport != nil {
		events = c.setup.Transport.Events()
	}
	reauth := time.NewTicker(c.setup.ReauthPollPeriod)
	defer reauth.Stop()

	for {
		select {
		case <-ctx.Done():
			c.closeTransport("context cancelled")
			return
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleTransportEvent(ctx, evt)
		case <-reauth.C:
			c.pollReauth(ctx)
		case cmd := <-c.mailbox:
			c.handleCommand(ctx, cmd)
			if cmd.kind == "close" {
				return
			}
		}
	}
}

// Open begins the connect sequence: initialized → connecting, then
// dials the transport.
func (c *Connection) Open(ctx context.Context) error {
	if c.setup.Transport == nil {
		return common.NilErrorf(c.setup.Transport, "Open: ConnectionSetup.Transport")
	}
	if _, err := c.transition("open"); err != nil {
		return err
	}
	handle, err := c.setup.Transport.Open(ctx, c.setup.Endpoint)
	if err != nil {
		c.onTransportError(ctx, err)
		return err
	}
	c.mu.Lock()
	c.transportHandle = handle
	c.mu.Unlock()
	return nil
}

func (c *Connection) handleTransportEvent(ctx context.Context, evt TransportEvent) {
	switch evt.Kind {
	case EventTransportUp:
		c.onTransportUp(evt.Protocol)
	case EventUpgradeOK:
		c.onUpgradeOK(ctx, evt.Ref, evt.Headers)
	case EventTransportDown:
		c.onTransportDown(ctx, evt.Reason)
	case EventFrame:
		c.onFrame(evt.Ref, evt.Frame)
	case EventError:
		c.onError(ctx, &evt.Ref, evt.Reason)
	}
}

// onTransportUp handles the transport_up event: status=connected,
// reset reconnect_attempts and the policy's attempt count, emit
// connection_up. The transport handle itself is stored by Open.
func (c *Connection) onTransportUp(protocol string) {
	if _, err := c.transition("transport_up"); err != nil {
		return
	}
	c.mu.Lock()
	c.reconnectAttempts = 0
	c.mu.Unlock()
	c.policyState = c.setup.Policy.ResetAttempts(c.policyState)
	c.setup.Sink.ConnectionUp(protocol)
	c.setup.Reporter.Event(TelemetryEvent{Name: "connection.open", Fields: map[string]any{"protocol": protocol}})
}

// onUpgradeOK handles the upgrade_ok event: status=
// websocket_connected, record the stream, emit websocket_upgrade,
// trigger auth (exactly once per upgrade).
func (c *Connection) onUpgradeOK(ctx context.Context, ref StreamRef, headers map[string][]string) {
	if _, err := c.transition("upgrade_ok"); err != nil {
		return
	}
	c.mu.Lock()
	c.streams[ref] = streamRecord{ref: ref, kind: "websocket", headers: headers}
	c.currentRef = ref
	c.mu.Unlock()
	c.setup.Sink.WebsocketUpgrade(ref, headers)

	if c.auth != nil {
		go func() {
			start := time.Now()
			_, err := c.auth.authenticate(ctx, func(payload []byte) error {
				return c.setup.Transport.Send(c.transportHandle, ref, Frame{Opcode: OpcodeText, Data: payload})
			})
			c.setup.Reporter.Latency("connection.auth", "authenticate", time.Since(start))
			if err != nil {
				c.setup.Sink.Error(&ref, err)
			}
		}()
	}
	if c.subs != nil {
		c.replaySubscriptions(ref)
	}
}

// replaySubscriptions reissues every subscription returned by
// ReplayAfterReconnect, reporting each result via telemetry. They are
// sent in SnapshotForReconnect's order, which is map iteration order,
// not the order in which the subscriptions were made.
func (c *Connection) replaySubscriptions(ref StreamRef) {
	results, failures := c.subs.ReplayAfterReconnect()
	for _, res := range results {
		start := time.Now()
		err := c.setup.Transport.Send(c.transportHandle, ref, Frame{Opcode: OpcodeText, Data: res.Payload})
		d := time.Since(start)
		fields := map[string]any{"subscription_id": res.Sub.ID.String(), "channel": res.Sub.Channel}
		if err != nil {
			fields["reason"] = err.Error()
			c.setup.Reporter.Event(TelemetryEvent{Name: "subscription.restoration_failed", Duration: d, Fields: fields})
			c.setup.Sink.Error(&ref, err)
			continue
		}
		c.setup.Reporter.Event(TelemetryEvent{Name: "subscription.restored", Duration: d, Fields: fields})
	}
	for _, f := range failures {
		c.setup.Reporter.Event(TelemetryEvent{Name: "subscription.restoration_failed",
			Fields: map[string]any{"subscription_id": f.Sub.ID.String(), "channel": f.Sub.Channel, "reason": f.Err.Error()}})
		c.setup.Sink.Error(&ref, f.Err)
	}
}

// onTransportDown handles the transport_down event: status=
// disconnected, record error, remove killed streams, snapshot
// subscriptions, request a retry decision.
func (c *Connection) onTransportDown(ctx context.Context, reason error) {
	if _, err := c.transition("transport_down"); err != nil {
		return
	}
	rec := NewErrorRecord(KindTransportDown, SourceTransport, time.Now().UnixNano())
	c.recordError(rec)

	c.mu.Lock()
	for ref := range c.streams {
		delete(c.streams, ref)
	}
	c.mu.Unlock()

	if c.subs != nil {
		c.subs.PrepareForReconnect()
	}

	c.setup.Sink.ConnectionDown(errString(reason))
	c.setup.Reporter.Event(TelemetryEvent{Name: "connection.close", Fields: map[string]any{"reason": errString(reason)}})

	c.resolveRetry(ctx, rec)
}

// onTransportError handles a failed dial, the connecting-state
// counterpart to onTransportDown: transition to error, surface it the
// same way a post-connect drop is surfaced, and hand the failure to
// the policy engine for a retry/stop decision. Without this a failed
// reconnect dial would strand the Connection in errorState forever.
func (c *Connection) onTransportError(ctx context.Context, reason error) {
	if _, err := c.transition("transport_error"); err != nil {
		return
	}
	rec := NewErrorRecord(KindConnectRefused, SourceTransport, time.Now().UnixNano())
	c.recordError(rec)

	c.setup.Sink.ConnectionDown(errString(reason))
	c.setup.Reporter.Event(TelemetryEvent{Name: "connection.close", Fields: map[string]any{"reason": errString(reason)}})

	c.resolveRetry(ctx, rec)
}

// resolveRetry asks the policy engine whether to reconnect after rec
// and advances the state machine accordingly. It is legal from any
// state with a retry_decision_* edge: disconnected (reached via
// transport_down/peer_close) and error (reached via transport_error).
func (c *Connection) resolveRetry(ctx context.Context, rec *ErrorRecord) {
	outcome, state := c.setup.Policy.HandleError(rec, nil, c.policyState)
	c.policyState = state
	switch outcome.Decision {
	case DecisionRetry:
		c.transition("retry_decision_true")
		c.mu.Lock()
		c.reconnectAttempts++
		c.mu.Unlock()
		go c.scheduleReconnect(ctx, outcome.Delay)
	default:
		c.transition("retry_decision_false")
	}
}

func (c *Connection) scheduleReconnect(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	// A dial failure here is routed to onTransportError by Open itself,
	// which schedules the next attempt (or stops) through the same
	// policy decision; there is nothing further to do with the error.
	c.Open(ctx)
}

// onFrame handles an inbound frame: a close frame removes the stream
// and applies peer_close. A frame taken by a waiting auth request, or
// recognised by the subscription registry as a response, stops there;
// every other frame goes to the callback sink as websocket_frame. The
// Adapter is not consulted.
func (c *Connection) onFrame(ref StreamRef, frame Frame) {
	if frame.Opcode == OpcodeClose {
		c.mu.Lock()
		delete(c.streams, ref)
		c.mu.Unlock()
		c.transition("peer_close")
	}

	if c.auth != nil {
		if handled := c.match.IncomingWithData(authSignature, frame.Data); handled {
			return
		}
	}
	if c.subs != nil {
		if matched, _ := c.subs.HandleResponse(frame.Data); matched {
			return
		}
	}
	c.setup.Sink.WebsocketFrame(ref, frame)
	c.setup.Reporter.Event(TelemetryEvent{Name: "message.received", Fields: map[string]any{"frame_type": frame.Opcode.String(), "size": len(frame.Data)}})
}

// onError handles an error event: record error, remove the stream if
// ref is non-nil, route to the policy engine.
func (c *Connection) onError(ctx context.Context, ref *StreamRef, reason error) {
	if ref != nil {
		c.mu.Lock()
		delete(c.streams, *ref)
		c.mu.Unlock()
	}
	rec := NewErrorRecord(KindInvalidFrame, SourceInternal, time.Now().UnixNano())
	c.recordError(rec)
	c.setup.Sink.Error(ref, reason)
	c.setup.Reporter.Event(TelemetryEvent{Name: "error.occurred", Fields: map[string]any{"reason": errString(reason)}})
	c.onTransportDown(ctx, reason)
}

func (c *Connection) recordError(rec *ErrorRecord) {
	c.mu.Lock()
	c.lastError = rec
	c.mu.Unlock()
}

func (c *Connection) pollReauth(ctx context.Context) {
	if c.auth == nil || c.State() != websocketConnectedState {
		return
	}
	if !c.auth.checkReauthentication() {
		return
	}
	c.mu.RLock()
	ref := c.currentRef
	_, live := c.streams[ref]
	c.mu.RUnlock()
	if !live {
		return
	}
	go func() {
		c.auth.authenticate(ctx, func(payload []byte) error {
			return c.setup.Transport.Send(c.transportHandle, ref, Frame{Opcode: OpcodeText, Data: payload})
		})
	}()
}

func (c *Connection) streamRefs() map[StreamRef]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[StreamRef]struct{}, len(c.streams))
	for ref := range c.streams {
		out[ref] = struct{}{}
	}
	return out
}

func (c *Connection) handleCommand(_ context.Context, cmd command) {
	var err error
	switch cmd.kind {
	case "send":
		frame, _ := cmd.payload.(Frame)
		err = c.sendFrame(frame)
	case "subscribe":
		req, _ := cmd.payload.(subscribeRequest)
		_, payload, serr := c.subs.Subscribe(req.key, req.channel, req.params)
		if serr != nil {
			err = serr
			break
		}
		err = c.sendFrame(Frame{Opcode: OpcodeText, Data: payload})
	case "unsubscribe":
		key := cmd.payload
		_, payload, serr := c.subs.Unsubscribe(key)
		if serr != nil {
			err = serr
			break
		}
		err = c.sendFrame(Frame{Opcode: OpcodeText, Data: payload})
	case "close":
		err = c.closeTransport("explicit_close")
	}
	if cmd.reply != nil {
		cmd.reply <- err
	}
}

func (c *Connection) sendFrame(frame Frame) error {
	if c.State() != websocketConnectedState {
		return ErrNotConnected
	}
	if err := Validate(frame); err != nil {
		return err
	}
	c.mu.RLock()
	handle := c.transportHandle
	ref := c.currentRef
	c.mu.RUnlock()
	return c.setup.Transport.Send(handle, ref, frame)
}

func (c *Connection) closeTransport(_ string) error {
	c.transition("explicit_close")
	if c.setup.Transport == nil {
		return nil
	}
	c.mu.RLock()
	handle := c.transportHandle
	c.mu.RUnlock()
	return c.setup.Transport.Close(handle)
}

type subscribeRequest struct {
	key     any
	channel string
	params  map[string]decimal.Decimal
}

// Send queues a text/binary frame to be sent by the runtime task,
// blocking until it is processed.
func (c *Connection) Send(frame Frame) error {
	reply := make(chan error, 1)
	c.mailbox <- command{kind: "send", payload: frame, reply: reply}
	return <-reply
}

// Subscribe queues a subscribe intent for the runtime task.
func (c *Connection) Subscribe(key any, channel string, params map[string]decimal.Decimal) error {
	reply := make(chan error, 1)
	c.mailbox <- command{kind: "subscribe", payload: subscribeRequest{key: key, channel: channel, params: params}, reply: reply}
	return <-reply
}

// Unsubscribe queues an unsubscribe intent for the runtime task.
func (c *Connection) Unsubscribe(key any) error {
	reply := make(chan error, 1)
	c.mailbox <- command{kind: "unsubscribe", payload: key, reply: reply}
	return <-reply
}

// Close requests an explicit close, honored at the runtime task's next
// suspension point.
func (c *Connection) Close() error {
	reply := make(chan error, 1)
	select {
	case c.mailbox <- command{kind: "close", reply: reply}:
	case <-c.done:
		return nil
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return nil
	}
}

// Done is closed once the runtime task's Run loop returns.
func (c *Connection) Done() <-chan struct{} { return c.done }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
