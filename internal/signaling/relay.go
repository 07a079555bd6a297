package signaling

import (
	"encoding/json"

	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/session"
	"github.com/rs/zerolog/log"
)

// ScreenFeed is the feed tag broadcast when a session stops sharing its screen
const ScreenFeed = "screen"

// RelayMessage forwards details to the session named by its "to" field, with
// "from" overwritten to the sender. Anything else in details passes through
// untouched. Malformed details and unknown targets are dropped silently.
func (s *Server) RelayMessage(from session.ID, details json.RawMessage) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(details, &fields); err != nil || fields == nil {
		return
	}
	var to string
	if err := json.Unmarshal(fields["to"], &to); err != nil || to == "" {
		return
	}
	target := session.ID(to)
	if !s.Sessions.Has(target) {
		log.Debug().Str("module", "signaling").Str("from", string(from)).Str("to", to).Msg("relay target not connected")
		return
	}

	sender, err := json.Marshal(string(from))
	if err != nil {
		return
	}
	fields["from"] = sender
	s.emit(target, models.EventMessage, fields)
}

func (s *Server) ShareScreen(id session.ID) {
	if err := s.Sessions.SetResourceFlag(id, session.FlagScreen, true); err != nil {
		return
	}
	log.Debug().Str("module", "signaling").Str("sid", string(id)).Msg("share screen")
}

// UnshareScreen clears the screen flag and tells the room the feed is gone
func (s *Server) UnshareScreen(id session.ID) {
	if err := s.Sessions.SetResourceFlag(id, session.FlagScreen, false); err != nil {
		return
	}
	s.LeaveCurrentRoom(id, ScreenFeed)
}

// Trace logs a client-side WebRTC trace record. It never touches state.
func (s *Server) Trace(id session.ID, data json.RawMessage) {
	var rec models.TraceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Debug().Err(err).Str("module", "signaling").Str("sid", string(id)).Msg("trace: bad payload")
		return
	}
	log.Info().Str("module", "trace").Str("sid", string(id)).Interface("trace", rec.Tuple()).Msg("trace")
}
