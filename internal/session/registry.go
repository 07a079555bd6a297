// Package session tracks per-connection state for every open signaling socket.
package session

import (
	"errors"
	"fmt"

	"github.com/mossy-p/signalhub/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyRegistered = errors.New("session already registered")
	ErrNotFound          = errors.New("session not found")
)

// ID is the opaque connection id handed out by the dispatcher
type ID string

// Flag names one of the resource booleans on a session
type Flag string

const (
	FlagScreen Flag = "screen"
	FlagVideo  Flag = "video"
	FlagAudio  Flag = "audio"
)

// Session is the server-side state of one live connection.
// Room is empty while the session is not in a room.
type Session struct {
	ID        ID
	Resources models.ResourceFlags
	Room      string
}

// Registry owns every Session. It is not safe for concurrent use; the hub
// goroutine is its only caller.
type Registry struct {
	sessions map[ID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[ID]*Session)}
}

// Register creates a session with default resources
func (r *Registry) Register(id ID) (*Session, error) {
	if _, exists := r.sessions[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	s := &Session{ID: id, Resources: models.DefaultResourceFlags()}
	r.sessions[id] = s
	log.Debug().Str("module", "session.registry").Str("sid", string(id)).Msg("registered")
	return s, nil
}

func (r *Registry) Get(id ID) (*Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Has reports whether id belongs to an open connection
func (r *Registry) Has(id ID) bool {
	_, ok := r.sessions[id]
	return ok
}

// SetResourceFlag updates one flag in place. Callers broadcast if needed.
func (r *Registry) SetResourceFlag(id ID, flag Flag, value bool) error {
	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	switch flag {
	case FlagScreen:
		s.Resources.Screen = value
	case FlagVideo:
		s.Resources.Video = value
	case FlagAudio:
		s.Resources.Audio = value
	default:
		return fmt.Errorf("unknown resource flag %q", flag)
	}
	return nil
}

// SetRoom records the session's current room ("" to clear)
func (r *Registry) SetRoom(id ID, room string) error {
	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Room = room
	return nil
}

// Remove deletes the session record. Removing an unknown id is a no-op.
func (r *Registry) Remove(id ID) {
	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	log.Debug().Str("module", "session.registry").Str("sid", string(id)).Msg("removed")
}

func (r *Registry) Len() int {
	return len(r.sessions)
}
