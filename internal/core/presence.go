package core

import "time"

// Presence announces membership transitions to the rest of a room.
// Announcements carry the user id only, never other identity claims.
type Presence struct {
	b *broadcaster
}

// Joined tells the other members of roomID that c arrived.
func (p *Presence) Joined(roomID string, c *Conn) int {
	return p.announce(roomID, c, PresenceJoin)
}

// Left tells the remaining members of roomID that c is gone.
func (p *Presence) Left(roomID string, c *Conn) int {
	return p.announce(roomID, c, PresenceLeave)
}

func (p *Presence) announce(roomID string, c *Conn, typ PresenceType) int {
	return p.b.broadcast(roomID, c.ID, &Event{
		Kind:     EventPresence,
		Room:     roomID,
		UserID:   c.UserID(),
		Presence: typ,
		At:       time.Now(),
	})
}
