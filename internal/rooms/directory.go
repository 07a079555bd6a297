// Package rooms maps room names to the sessions currently inside them.
package rooms

import (
	"sort"

	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/session"
	"github.com/rs/zerolog/log"
)

// Directory holds room membership. An empty room is deleted, so a room with
// no members and a room that never existed look the same.
// Like session.Registry it is owned by the hub goroutine.
type Directory struct {
	rooms map[string]map[session.ID]struct{}
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]map[session.ID]struct{})}
}

// Count returns the number of members in name
func (d *Directory) Count(name string) int {
	return len(d.rooms[name])
}

// Members returns the member ids of name in a stable order
func (d *Directory) Members(name string) []session.ID {
	room := d.rooms[name]
	out := make([]session.ID, 0, len(room))
	for id := range room {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (d *Directory) Contains(name string, id session.ID) bool {
	_, ok := d.rooms[name][id]
	return ok
}

// Add puts id in name, creating the room on first use
func (d *Directory) Add(name string, id session.ID) {
	room, ok := d.rooms[name]
	if !ok {
		room = make(map[session.ID]struct{})
		d.rooms[name] = room
		log.Debug().Str("module", "rooms.directory").Str("room", name).Msg("room created")
	}
	room[id] = struct{}{}
}

// Remove takes id out of name and drops the room once it is empty.
// It reports whether id was a member.
func (d *Directory) Remove(name string, id session.ID) bool {
	room, ok := d.rooms[name]
	if !ok {
		return false
	}
	if _, member := room[id]; !member {
		return false
	}
	delete(room, id)
	if len(room) == 0 {
		delete(d.rooms, name)
		log.Debug().Str("module", "rooms.directory").Str("room", name).Msg("removed empty room")
	}
	return true
}

// Describe builds the ack payload for name from the registry's view of each member
func (d *Directory) Describe(name string, reg *session.Registry) models.RoomDescriptor {
	desc := models.RoomDescriptor{Clients: make(map[string]models.ResourceFlags)}
	for id := range d.rooms[name] {
		s, err := reg.Get(id)
		if err != nil {
			continue
		}
		desc.Clients[string(id)] = s.Resources
	}
	return desc
}

// List summarises every non-empty room, sorted by name
func (d *Directory) List() []models.RoomSummary {
	out := make([]models.RoomSummary, 0, len(d.rooms))
	for name, room := range d.rooms {
		out = append(out, models.RoomSummary{Name: name, Clients: len(room)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
