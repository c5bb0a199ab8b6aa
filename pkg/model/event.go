package model

import "encoding/json"

// EventName identifies a message on the viewer channel.
type EventName string

// Viewer channel events.
const (
	// EventUpdate carries a GraphSnapshot (server -> viewer).
	EventUpdate EventName = "update"
	// EventError carries a human-readable error string (server -> viewer).
	EventError EventName = "error"
	// EventChangeNamespace carries a namespace name (viewer -> server).
	EventChangeNamespace EventName = "changeNamespace"
)

// Event is the envelope written to and read from the viewer channel.
type Event struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEvent marshals data into an Event envelope.
func NewEvent(name EventName, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Event: name, Data: raw}, nil
}

// StringData decodes the payload as a JSON string.
func (e Event) StringData() (string, error) {
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return "", err
	}
	return s, nil
}
