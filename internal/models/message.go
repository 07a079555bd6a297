package models

import "encoding/json"

// EventName identifies a frame on the signaling socket
type EventName string

const (
	EventMessage       EventName = "message"
	EventShareScreen   EventName = "shareScreen"
	EventUnshareScreen EventName = "unshareScreen"
	EventJoin          EventName = "join"
	EventCreate        EventName = "create"
	EventLeave         EventName = "leave"
	EventDisconnect    EventName = "disconnect"
	EventTrace         EventName = "trace"

	EventRemove      EventName = "remove"
	EventStunServers EventName = "stunservers"
	EventTurnServers EventName = "turnservers"
	EventAck         EventName = "ack"
)

// Envelope is the JSON frame exchanged over the websocket in both directions.
// Ack is set by the client when it wants a reply to join/create, and echoed
// back on the matching "ack" frame.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
}

// NewEnvelope marshals data into an outbound frame
func NewEnvelope(event EventName, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// TraceRecord is the fixed-shape payload accepted by the trace event
type TraceRecord struct {
	Type    any `json:"type"`
	Session any `json:"session"`
	Prefix  any `json:"prefix"`
	Peer    any `json:"peer"`
	Time    any `json:"time"`
	Value   any `json:"value"`
}

// Tuple flattens the record in the order operators grep for
func (t TraceRecord) Tuple() []any {
	return []any{t.Type, t.Session, t.Prefix, t.Peer, t.Time, t.Value}
}
