package signaling

import (
	"encoding/json"

	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/session"
	"github.com/rs/zerolog/log"
)

// Join moves id into the room named by name. A name that is not a JSON string
// is ignored without an ack.
func (s *Server) Join(id session.ID, name json.RawMessage, ack Ack) {
	room, ok := stringArg(name)
	if !ok {
		log.Debug().Str("module", "signaling").Str("sid", string(id)).Msg("join: ignoring non-string room name")
		return
	}
	s.join(id, room, ack)
}

func (s *Server) join(id session.ID, room string, ack Ack) {
	if !s.Sessions.Has(id) {
		return
	}
	if s.maxClients > 0 && s.Rooms.Count(room) >= s.maxClients {
		log.Info().Str("module", "signaling").Str("sid", string(id)).Str("room", room).Int("max_clients", s.maxClients).Msg("join rejected: room full")
		ack.Call(ErrFull, nil)
		return
	}

	s.LeaveCurrentRoom(id, "")

	// The descriptor lists the members already present, not the joiner.
	ack.Call(nil, s.Rooms.Describe(room, s.Sessions))
	s.Rooms.Add(room, id)
	_ = s.Sessions.SetRoom(id, room)
	s.presence.Joined(room, id)

	log.Info().Str("module", "signaling").Str("sid", string(id)).Str("room", room).Int("members", s.Rooms.Count(room)).Msg("joined room")
}

// Create joins id to a new room. An absent, null or empty name gets a
// generated one. A room that already has members is Taken.
func (s *Server) Create(id session.ID, name json.RawMessage, ack Ack) {
	room, ok := optionalStringArg(name)
	if !ok {
		log.Debug().Str("module", "signaling").Str("sid", string(id)).Msg("create: ignoring non-string room name")
		return
	}
	if room == "" {
		room = s.ids.NewID()
	}

	if s.Rooms.Count(room) > 0 {
		log.Info().Str("module", "signaling").Str("sid", string(id)).Str("room", room).Msg("create rejected: room taken")
		ack.Call(ErrTaken, nil)
		return
	}

	s.join(id, room, nil)
	ack.Call(nil, room)
}

// LeaveCurrentRoom tells the room that id is gone. With an empty feed the
// session leaves the room; with a feed tag (e.g. "screen") only that feed is
// withdrawn and membership is kept.
func (s *Server) LeaveCurrentRoom(id session.ID, feed string) {
	sess, err := s.Sessions.Get(id)
	if err != nil || sess.Room == "" {
		return
	}
	room := sess.Room

	s.broadcast(room, models.EventRemove, models.RemoveEvent{ID: string(id), Type: feed})
	if feed != "" {
		log.Debug().Str("module", "signaling").Str("sid", string(id)).Str("room", room).Str("feed", feed).Msg("feed removed")
		return
	}

	s.Rooms.Remove(room, id)
	_ = s.Sessions.SetRoom(id, "")
	s.presence.Left(room, id)
	log.Info().Str("module", "signaling").Str("sid", string(id)).Str("room", room).Msg("left room")
}

// Disconnect leaves the current room and forgets the session
func (s *Server) Disconnect(id session.ID) {
	s.LeaveCurrentRoom(id, "")
	s.Sessions.Remove(id)
}

// EvictRoom makes every member of room leave it and returns how many left
func (s *Server) EvictRoom(room string) int {
	members := s.Rooms.Members(room)
	for _, id := range members {
		s.LeaveCurrentRoom(id, "")
	}
	if len(members) > 0 {
		log.Info().Str("module", "signaling").Str("room", room).Int("evicted", len(members)).Msg("room evicted")
	}
	return len(members)
}
