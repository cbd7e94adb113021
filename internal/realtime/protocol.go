// Package realtime implements the change-subscription side of the platform
// wire protocol: a websocket stream of insert/update/delete notifications
// for named collections.
package realtime

import "encoding/json"

// Change event kinds. EventAny subscribes to every kind.
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
	EventAny    = "*"
)

// Client frame actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Server frame types.
const (
	FrameSubscribed = "subscribed"
	FrameChange     = "change"
	FrameError      = "error"
)

// ChangeEvent is a single committed change on a collection. The record
// payload is the row as of the change; consumers must treat it as a trigger
// to re-fetch, not as a delta to apply, unless they explicitly accept the
// staleness trade (chat does).
type ChangeEvent struct {
	Collection string          `json:"collection"`
	Event      string          `json:"event"`
	Record     json.RawMessage `json:"record"`
}

// ClientFrame is a frame sent from the client to the realtime endpoint.
type ClientFrame struct {
	Action     string   `json:"action"`
	ID         string   `json:"id"`
	Collection string   `json:"collection,omitempty"`
	Events     []string `json:"events,omitempty"`
	Filter     string   `json:"filter,omitempty"`
}

// ServerFrame is a frame sent from the realtime endpoint to the client.
type ServerFrame struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	Collection string          `json:"collection,omitempty"`
	Event      string          `json:"event,omitempty"`
	Record     json.RawMessage `json:"record,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// MatchesMask reports whether the event kind passes the subscription's mask.
func MatchesMask(mask []string, event string) bool {
	if len(mask) == 0 {
		return true
	}
	for _, m := range mask {
		if m == EventAny || m == event {
			return true
		}
	}
	return false
}
