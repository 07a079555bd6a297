// Package signaling implements the room lifecycle and relay protocol on top of
// the session registry and room directory.
//
// Nothing in this package locks. Every exported method must be called from
// the single dispatch goroutine that owns the Server; see handlers.Hub.
package signaling

import (
	"github.com/mossy-p/signalhub/internal/ids"
	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/rooms"
	"github.com/mossy-p/signalhub/internal/session"
	"github.com/mossy-p/signalhub/internal/turn"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Outbox delivers a frame to one connection. Delivery is fire-and-forget.
type Outbox interface {
	Emit(to session.ID, env models.Envelope)
}

// Presence is told about membership changes, e.g. to mirror them elsewhere.
// Implementations must not block.
type Presence interface {
	Joined(room string, id session.ID)
	Left(room string, id session.ID)
}

type Options struct {
	// MaxClients caps room size at join time; 0 means unlimited.
	MaxClients  int
	StunServers []webrtc.ICEServer
	Minter      *turn.Minter
	IDs         ids.Generator
	Presence    Presence
}

// Server is the process-wide signaling state
type Server struct {
	Sessions *session.Registry
	Rooms    *rooms.Directory

	out         Outbox
	maxClients  int
	stunServers []webrtc.ICEServer
	minter      *turn.Minter
	ids         ids.Generator
	presence    Presence
}

func NewServer(out Outbox, opts Options) *Server {
	if opts.IDs == nil {
		opts.IDs = ids.UUID{}
	}
	if opts.Minter == nil {
		opts.Minter = turn.NewMinter(turn.Config{})
	}
	if opts.Presence == nil {
		opts.Presence = noopPresence{}
	}
	stun := opts.StunServers
	if stun == nil {
		stun = []webrtc.ICEServer{}
	}
	return &Server{
		Sessions:    session.NewRegistry(),
		Rooms:       rooms.NewDirectory(),
		out:         out,
		maxClients:  opts.MaxClients,
		stunServers: stun,
		minter:      opts.Minter,
		ids:         opts.IDs,
		presence:    opts.Presence,
	}
}

func (s *Server) emit(to session.ID, event models.EventName, data any) {
	env, err := models.NewEnvelope(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "signaling").Str("event", string(event)).Msg("failed to marshal event")
		return
	}
	s.out.Emit(to, env)
}

// broadcast sends to every current member of room, in member order
func (s *Server) broadcast(room string, event models.EventName, data any) {
	env, err := models.NewEnvelope(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "signaling").Str("event", string(event)).Msg("failed to marshal event")
		return
	}
	for _, id := range s.Rooms.Members(room) {
		s.out.Emit(id, env)
	}
}

type noopPresence struct{}

func (noopPresence) Joined(string, session.ID) {}
func (noopPresence) Left(string, session.ID)   {}
