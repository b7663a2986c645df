package core

import "sync"

// room groups connections reading the same content. It holds no history.
type room struct {
	id string

	mu      sync.Mutex
	members map[string]*Conn
	// dead is set once the room has been removed from the registry.
	dead bool
}

func newRoom(id string) *room {
	return &room{
		id:      id,
		members: make(map[string]*Conn),
	}
}

// add inserts a connection. Returns true if newly added.
// Caller holds r.mu.
func (r *room) add(c *Conn) bool {
	if _, exists := r.members[c.ID]; exists {
		return false
	}
	r.members[c.ID] = c
	return true
}

// remove deletes a connection. Returns true if removed.
// Caller holds r.mu.
func (r *room) remove(connID string) bool {
	if _, exists := r.members[connID]; !exists {
		return false
	}
	delete(r.members, connID)
	return true
}

func (r *room) empty() bool {
	return len(r.members) == 0
}

func (r *room) snapshot() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Conn, 0, len(r.members))
	for _, c := range r.members {
		out = append(out, c)
	}
	return out
}
