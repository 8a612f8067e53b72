package wsclient

import "github.com/buger/jsonparser"

// frameClass is a cheap classification of an inbound JSON text frame,
// computed without a full unmarshal so the runtime task can route
// auth/subscription responses away from the adapter without paying
// for a struct decode on the hot path. Connection.onFrame does not call
// classify; it recognises auth and subscription responses through
// Match and Registry.HandleResponse.
type frameClass int

const (
	classUnknown frameClass = iota
	classAuthResponse
	classSubscriptionResponse
	classPlatformMessage
)

// sniffFields is the set of top-level JSON keys a payload is checked
// for, in priority order, to decide its frameClass.
type sniffFields struct {
	AuthKey         string
	SubscriptionKey string
}

// defaultSniffFields matches the common `{"event": "...", ...}` shape
// used by most JSON-over-websocket feeds.
var defaultSniffFields = sniffFields{AuthKey: "event", SubscriptionKey: "event"}

// classify inspects data's top-level JSON object for fields.AuthKey /
// fields.SubscriptionKey without allocating a full decoded value,
// using jsonparser.Get for direct key lookup.
func classify(data []byte, fields sniffFields, authValues, subscriptionValues []string) frameClass {
	if len(data) == 0 || data[0] != '{' {
		return classPlatformMessage
	}
	if fields.AuthKey != "" {
		if v, err := jsonparser.GetString(data, fields.AuthKey); err == nil {
			if contains(authValues, v) {
				return classAuthResponse
			}
			if contains(subscriptionValues, v) {
				return classSubscriptionResponse
			}
		}
	}
	if fields.SubscriptionKey != "" && fields.SubscriptionKey != fields.AuthKey {
		if v, err := jsonparser.GetString(data, fields.SubscriptionKey); err == nil && contains(subscriptionValues, v) {
			return classSubscriptionResponse
		}
	}
	return classPlatformMessage
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
