package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventPage carries a shared page position.
	EventPage EventKind = iota
	// EventChat carries a chat message.
	EventChat
	// EventReaction carries an ephemeral reaction.
	EventReaction
	// EventPresence notifies members about a join or leave.
	EventPresence
	// EventJoined acknowledges a join to the joiner.
	EventJoined
	// EventError notifies a client about a rejected command.
	EventError
)

// PresenceType distinguishes join from leave notifications.
type PresenceType string

const (
	PresenceJoin  PresenceType = "join"
	PresenceLeave PresenceType = "leave"
)

// Event is sent to clients to describe what happened in a room.
// A single Event value is shared by all recipients and must not be mutated.
type Event struct {
	Kind      EventKind
	Room      string
	UserID    string
	PageIndex int
	Text      string
	Emoji     string
	Presence  PresenceType
	Members   []string // EventJoined only
	Error     *CoreError
	At        time.Time
}
