package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello    = "hello"
	InboundTypeJoin     = "join"
	InboundTypeLeave    = "leave"
	InboundTypePage     = "page"
	InboundTypeChat     = "chat"
	InboundTypeReaction = "reaction"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventWelcome  = "welcome"
	EventJoined   = "joined"
	EventPage     = "page"
	EventChat     = "chat"
	EventReaction = "reaction"
	EventPresence = "presence"
)

// HelloData authenticates a connection that did not carry a token in the
// handshake. It must be the first frame.
type HelloData struct {
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// RoomData names the room for join and leave.
type RoomData struct {
	RoomID string `json:"roomId" validate:"required,max=256"`
}

// PageData shares a page position. PageIndex is a pointer so that page 0 is
// distinguishable from a missing field.
type PageData struct {
	RoomID    string `json:"roomId" validate:"required,max=256"`
	PageIndex *int   `json:"pageIndex" validate:"required,gte=0"`
}

// ChatData is a chat message from the client.
type ChatData struct {
	RoomID  string `json:"roomId" validate:"required,max=256"`
	Message string `json:"message" validate:"required,max=4096"`
}

// ReactionData is an ephemeral reaction from the client.
type ReactionData struct {
	RoomID string `json:"roomId" validate:"required,max=256"`
	Emoji  string `json:"emoji" validate:"required,max=64"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventWelcomeData confirms authentication.
type EventWelcomeData struct {
	UserID   string `json:"userId"`
	ConnID   string `json:"connId"`
	Protocol int    `json:"protocol"`
}

// EventJoinedData acknowledges a join to the joiner.
type EventJoinedData struct {
	RoomID  string   `json:"roomId"`
	Members []string `json:"members"`
}

// EventPageData is the page position forwarded to peers.
type EventPageData struct {
	RoomID    string `json:"roomId"`
	PageIndex int    `json:"pageIndex"`
}

// EventChatData is a chat message forwarded to peers.
type EventChatData struct {
	RoomID  string `json:"roomId"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
	TS      int64  `json:"ts"`
}

// EventReactionData is a reaction forwarded to peers.
type EventReactionData struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Emoji  string `json:"emoji"`
	TS     int64  `json:"ts"`
}

// EventPresenceData notifies that a user joined or left.
type EventPresenceData struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
