package wsclient

import (
	"sync"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// SubStatus is the lifecycle status of a Subscription
type SubStatus string

const (
	SubStatusPending      SubStatus = "pending"
	SubStatusSubscribed   SubStatus = "subscribed"
	SubStatusUnsubscribing SubStatus = "unsubscribing"
	SubStatusUnsubscribed SubStatus = "unsubscribed"
	SubStatusError        SubStatus = "error"
)

// Subscription tracks one channel subscription's lifecycle.
type Subscription struct {
	ID      uuid.UUID
	Channel string
	Params  map[string]decimal.Decimal
	Status  SubStatus
	Key     any // application-defined lookup key, e.g. channel+params hash
}

// SubscriptionHandler builds the wire payload for a (un)subscribe
// intent, and interprets an inbound frame as a response to one.
type SubscriptionHandler interface {
	BuildSubscribe(sub *Subscription) (payload []byte, signature any, err error)
	BuildUnsubscribe(sub *Subscription) (payload []byte, signature any, err error)
	ParseResponse(data []byte) (key any, ok bool, err error)
}

// Registry tracks live Subscriptions across reconnects: subscribe,
// unsubscribe, matching responses to pending requests, and
// snapshot/replay for the reconnect path. Unlike the auth flow,
// subscription acknowledgements are resolved synchronously by
// ParseResponse rather than through the Match primitive: the handler
// identifies the owning key directly from the response frame.
type Registry struct {
	mu      sync.Mutex
	byKey   map[any]*Subscription
	handler SubscriptionHandler
}

func NewRegistry(handler SubscriptionHandler) *Registry {
	return &Registry{byKey: make(map[any]*Subscription), handler: handler}
}

// Subscribe registers a new pending Subscription under key and
// returns it together with the wire payload to send. Duplicate keys
// are rejected.
func (r *Registry) Subscribe(key any, channel string, params map[string]decimal.Decimal) (*Subscription, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key]; ok {
		return nil, nil, ErrSubscriptionDuplicate
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, nil, err
	}
	sub := &Subscription{ID: id, Channel: channel, Params: params, Status: SubStatusPending, Key: key}
	payload, _, err := r.handler.BuildSubscribe(sub)
	if err != nil {
		return nil, nil, err
	}
	r.byKey[key] = sub
	return sub, payload, nil
}

// Unsubscribe transitions a tracked Subscription to unsubscribing and
// returns the wire payload for the unsubscribe request.
func (r *Registry) Unsubscribe(key any) (*Subscription, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byKey[key]
	if !ok {
		return nil, nil, ErrSubscriptionNotFound
	}
	sub.Status = SubStatusUnsubscribing
	payload, _, err := r.handler.BuildUnsubscribe(sub)
	if err != nil {
		return nil, nil, err
	}
	return sub, payload, nil
}

// HandleResponse routes an inbound frame to its Subscription via the
// handler's ParseResponse, updating status on success.
func (r *Registry) HandleResponse(data []byte) (bool, error) {
	key, ok, err := r.handler.ParseResponse(data)
	if err != nil || !ok {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, found := r.byKey[key]
	if !found {
		return false, ErrUnknownSubscription
	}
	switch sub.Status {
	case SubStatusPending:
		sub.Status = SubStatusSubscribed
	case SubStatusUnsubscribing:
		sub.Status = SubStatusUnsubscribed
		delete(r.byKey, key)
	}
	return true, nil
}

// SnapshotForReconnect returns every subscribed or pending
// Subscription, for replay after a reconnect. The result follows map
// iteration order, not the order in which the subscriptions were made.
func (r *Registry) SnapshotForReconnect() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Subscription, 0, len(r.byKey))
	for _, sub := range r.byKey {
		if sub.Status == SubStatusSubscribed || sub.Status == SubStatusPending {
			out = append(out, sub)
		}
	}
	return out
}

// PrepareForReconnect flips every currently subscribed Subscription to
// pending. It is called as soon as the Connection leaves
// websocket_connected, so no subscription is ever reported subscribed
// while the underlying connection is down, independent of when (or
// whether) a replay eventually runs.
func (r *Registry) PrepareForReconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.byKey {
		if sub.Status == SubStatusSubscribed {
			sub.Status = SubStatusPending
		}
	}
}

// ReplayResult pairs a resend payload with the Subscription it was
// built for.
type ReplayResult struct {
	Sub     *Subscription
	Payload []byte
}

// ReplayFailure pairs a BuildSubscribe failure with the Subscription
// it was building for.
type ReplayFailure struct {
	Sub *Subscription
	Err error
}

// ReplayAfterReconnect re-issues BuildSubscribe for every snapshotted
// Subscription, resetting status to pending and returning the
// payloads to send in snapshot order. A failure on one subscription
// does not abort replay of the rest.
func (r *Registry) ReplayAfterReconnect() ([]ReplayResult, []ReplayFailure) {
	subs := r.SnapshotForReconnect()
	results := make([]ReplayResult, 0, len(subs))
	failures := make([]ReplayFailure, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range subs {
		sub.Status = SubStatusPending
		payload, _, err := r.handler.BuildSubscribe(sub)
		if err != nil {
			failures = append(failures, ReplayFailure{Sub: sub, Err: err})
			sub.Status = SubStatusError
			continue
		}
		results = append(results, ReplayResult{Sub: sub, Payload: payload})
	}
	return results, failures
}

// ExportState returns a serializable snapshot suitable for
// ImportState, used when a Connection is torn down and rebuilt
// without a live reconnect.
func (r *Registry) ExportState() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subscription, 0, len(r.byKey))
	for _, sub := range r.byKey {
		out = append(out, *sub)
	}
	return out
}

// ImportState restores a Registry from a prior ExportState, marking
// every restored Subscription pending so the next connect cycle
// replays it.
func (r *Registry) ImportState(subs []Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range subs {
		s := subs[i]
		s.Status = SubStatusPending
		r.byKey[s.Key] = &s
	}
}
