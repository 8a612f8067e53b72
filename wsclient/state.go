package wsclient

import "sync/atomic"

// State is a Connection's lifecycle status.
type State int32

const (
	initializedState State = iota
	connectingState
	connectedState
	websocketConnectedState
	disconnectedState
	reconnectingState
	errorState
	closedState
)

func (s State) String() string {
	switch s {
	case initializedState:
		return "initialized"
	case connectingState:
		return "connecting"
	case connectedState:
		return "connected"
	case websocketConnectedState:
		return "websocket_connected"
	case disconnectedState:
		return "disconnected"
	case reconnectingState:
		return "reconnecting"
	case errorState:
		return "error"
	case closedState:
		return "closed"
	default:
		return "unknown"
	}
}

// transitionKey is a (from, event) pair used to look up a legal
// state transition.
type transitionKey struct {
	from  State
	event string
}

// legalTransitions is the state machine's transition table. "any" is
// handled separately for explicit_close, since Go has no wildcard map key.
var legalTransitions = map[transitionKey]State{
	{initializedState, "open"}:                 connectingState,
	{connectingState, "transport_up"}:           connectedState,
	{connectingState, "transport_error"}:        errorState,
	{connectedState, "upgrade_ok"}:               websocketConnectedState,
	{connectedState, "transport_down"}:           disconnectedState,
	{websocketConnectedState, "transport_down"}:  disconnectedState,
	{websocketConnectedState, "peer_close"}:      disconnectedState,
	{disconnectedState, "retry_decision_true"}:   reconnectingState,
	{disconnectedState, "retry_decision_false"}:  closedState,
	{errorState, "retry_decision_true"}:          reconnectingState,
	{errorState, "retry_decision_false"}:         closedState,
	{reconnectingState, "open"}:                  connectingState,
}

// nextState looks up the legal transition for (from, event). explicit_close
// is legal from any state and always goes to closedState.
func nextState(from State, event string) (State, bool) {
	if event == "explicit_close" {
		return closedState, true
	}
	to, ok := legalTransitions[transitionKey{from, event}]
	return to, ok
}

// atomicState is a tiny helper wrapping atomic.Int32 with the State type.
type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) Load() State       { return State(a.v.Load()) }
func (a *atomicState) Store(s State)     { a.v.Store(int32(s)) }
func (a *atomicState) CAS(old, new State) bool {
	return a.v.CompareAndSwap(int32(old), int32(new))
}
