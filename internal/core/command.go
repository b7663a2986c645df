package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin subscribes the connection to a room, leaving any prior room.
	CommandJoin CommandKind = iota
	// CommandLeave unsubscribes the connection from its room.
	CommandLeave
	// CommandPage shares the current page index with the room.
	CommandPage
	// CommandChat sends a chat message to the room.
	CommandChat
	// CommandReaction sends an ephemeral reaction to the room.
	CommandReaction
	// CommandDisconnect tears the connection down.
	CommandDisconnect
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoin:
		return "join"
	case CommandLeave:
		return "leave"
	case CommandPage:
		return "page"
	case CommandChat:
		return "chat"
	case CommandReaction:
		return "reaction"
	case CommandDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind      CommandKind
	Room      string
	PageIndex int
	Text      string
	Emoji     string
}
