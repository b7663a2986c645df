package core

import (
	"sort"
	"sync"
)

// Registry maps room ids to their current members.
//
// Lock order: a room's mutex may be held while taking the registry mutex,
// never the other way round. Join resolves the room under the registry mutex,
// releases it, then locks the room; if the room died in between it retries.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

// Stats summarises registry occupancy.
type Stats struct {
	Rooms   int `json:"rooms"`
	Members int `json:"members"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

func (g *Registry) lookup(roomID string, create bool) *room {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok && create {
		r = newRoom(roomID)
		g.rooms[roomID] = r
	}
	return r
}

// Join adds c to roomID, creating the room if needed. Joining a room the
// connection already belongs to is a no-op. Returns true if c was added.
func (g *Registry) Join(roomID string, c *Conn) bool {
	for {
		r := g.lookup(roomID, true)

		r.mu.Lock()
		if r.dead {
			// Emptied and unlinked by a concurrent Leave; a fresh room
			// will be created on the next lookup.
			r.mu.Unlock()
			continue
		}
		added := r.add(c)
		r.mu.Unlock()
		return added
	}
}

// Leave removes connID from roomID. Leaving a room one is not in is a no-op.
// The leave that empties a room also removes it from the registry.
// Returns true if the connection was removed.
func (g *Registry) Leave(roomID, connID string) bool {
	r := g.lookup(roomID, false)
	if r == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.remove(connID) {
		return false
	}
	if r.empty() {
		r.dead = true
		g.mu.Lock()
		if g.rooms[roomID] == r {
			delete(g.rooms, roomID)
		}
		g.mu.Unlock()
	}
	return true
}

// MembersOf returns a snapshot of the room's members. The slice is owned by
// the caller.
func (g *Registry) MembersOf(roomID string) []*Conn {
	r := g.lookup(roomID, false)
	if r == nil {
		return nil
	}
	return r.snapshot()
}

// IsMember reports whether connID is currently in roomID.
func (g *Registry) IsMember(roomID, connID string) bool {
	r := g.lookup(roomID, false)
	if r == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[connID]
	return ok
}

// Rooms lists the ids of rooms with at least one member, sorted.
func (g *Registry) Rooms() []string {
	g.mu.Lock()
	ids := make([]string, 0, len(g.rooms))
	for id := range g.rooms {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Stats counts rooms and memberships.
func (g *Registry) Stats() Stats {
	g.mu.Lock()
	rooms := make([]*room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.Unlock()

	st := Stats{Rooms: len(rooms)}
	for _, r := range rooms {
		r.mu.Lock()
		st.Members += len(r.members)
		r.mu.Unlock()
	}
	return st
}
