package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/session"
	"github.com/rs/zerolog/log"
)

// Handler runs one inbound event for a session
type Handler func(data json.RawMessage, ack Ack)

// Dispatcher is the per-connection event table built by Connect and torn
// down by Close.
type Dispatcher struct {
	ID       session.ID
	server   *Server
	handlers map[models.EventName]Handler
}

// Connect registers a session for a newly opened connection, sends it the
// STUN list and its TURN credentials, and returns its dispatch table.
// hangup is what a client-sent "disconnect" does; it should close the
// connection, which in turn leads to Close.
func (s *Server) Connect(id session.ID, origin string, hangup func()) (*Dispatcher, error) {
	if _, err := s.Sessions.Register(id); err != nil {
		return nil, err
	}
	if hangup == nil {
		hangup = func() {}
	}

	d := &Dispatcher{ID: id, server: s}
	d.handlers = map[models.EventName]Handler{
		models.EventMessage: func(data json.RawMessage, _ Ack) {
			s.RelayMessage(id, data)
		},
		models.EventShareScreen: func(json.RawMessage, Ack) {
			s.ShareScreen(id)
		},
		models.EventUnshareScreen: func(json.RawMessage, Ack) {
			s.UnshareScreen(id)
		},
		models.EventJoin: func(data json.RawMessage, ack Ack) {
			s.Join(id, data, ack)
		},
		models.EventCreate: func(data json.RawMessage, ack Ack) {
			s.Create(id, data, ack)
		},
		models.EventLeave: func(json.RawMessage, Ack) {
			s.LeaveCurrentRoom(id, "")
		},
		models.EventDisconnect: func(json.RawMessage, Ack) {
			hangup()
		},
		models.EventTrace: func(data json.RawMessage, _ Ack) {
			s.Trace(id, data)
		},
	}

	s.emit(id, models.EventStunServers, s.stunServers)
	s.emit(id, models.EventTurnServers, s.minter.Mint(origin))

	log.Info().Str("module", "signaling").Str("sid", string(id)).Str("origin", origin).Int("sessions", s.Sessions.Len()).Msg("connected")
	return d, nil
}

// Dispatch runs the handler for event. A panic inside the handler is logged
// and swallowed so one bad frame cannot take the dispatch loop down.
// It returns an error for unknown events and recovered panics.
func (d *Dispatcher) Dispatch(event models.EventName, data json.RawMessage, ack Ack) (err error) {
	h, ok := d.handlers[event]
	if !ok {
		return fmt.Errorf("unknown event %q", event)
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "signaling").Str("sid", string(d.ID)).Str("event", string(event)).Interface("panic", r).Msg("handler panicked")
			err = fmt.Errorf("handler for %q panicked: %v", event, r)
		}
	}()
	h(data, ack)
	return nil
}

// Close runs disconnect cleanup once and empties the table
func (d *Dispatcher) Close() {
	if d.handlers == nil {
		return
	}
	d.handlers = nil
	d.server.Disconnect(d.ID)
	log.Info().Str("module", "signaling").Str("sid", string(d.ID)).Int("sessions", d.server.Sessions.Len()).Msg("disconnected")
}
