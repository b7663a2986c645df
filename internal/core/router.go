package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Router dispatches client commands to room-scoped broadcasts.
// All state-machine checks for a connection happen in Dispatch.
type Router struct {
	registry *Registry
	presence *Presence
	b        *broadcaster
	log      *zerolog.Logger
}

// NewRouter builds a router over registry. A nil logger disables logging.
func NewRouter(registry *Registry, logger *zerolog.Logger) *Router {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	b := &broadcaster{registry: registry, log: logger}
	return &Router{
		registry: registry,
		presence: &Presence{b: b},
		b:        b,
		log:      logger,
	}
}

// Registry returns the registry the router broadcasts over.
func (rt *Router) Registry() *Registry {
	return rt.registry
}

// Dispatch handles one command from c. Errors are *CoreError values meant for
// the sender; none of them end the connection. Commands from a closed
// connection are dropped.
func (rt *Router) Dispatch(_ context.Context, c *Conn, cmd Command) error {
	if cmd.Kind == CommandDisconnect {
		rt.Disconnect(c)
		return nil
	}

	switch c.State() {
	case StateClosed:
		return nil
	case StateConnecting:
		return coreError(ErrCodeUnauthenticated, "authenticate first", ErrUnauthenticated)
	}

	switch cmd.Kind {
	case CommandJoin:
		return rt.join(c, cmd.Room)
	case CommandLeave:
		rt.leave(c, cmd.Room)
		return nil
	case CommandPage, CommandChat, CommandReaction:
		return rt.relay(c, cmd)
	default:
		return coreError(ErrCodeBadRequest, "unknown command", ErrBadRequest)
	}
}

// Disconnect closes c and removes it from its room. Safe to call repeatedly;
// the leave path runs once.
func (rt *Router) Disconnect(c *Conn) {
	c.Close()
	c.leaveOnce.Do(func() {
		if roomID := c.takeRoom(); roomID != "" {
			rt.removeMember(roomID, c)
		}
		rt.log.Debug().Str("conn_id", c.ID).Str("user_id", c.UserID()).Msg("connection closed")
	})
}

func (rt *Router) join(c *Conn, roomID string) error {
	if roomID == "" {
		return coreError(ErrCodeBadRequest, "room is required", ErrBadRequest)
	}

	if current := c.Room(); current != roomID {
		if current != "" {
			c.setRoom("")
			rt.removeMember(current, c)
		}
		if rt.registry.Join(roomID, c) {
			rt.presence.Joined(roomID, c)
		}
		c.setRoom(roomID)
		rt.log.Debug().Str("conn_id", c.ID).Str("user_id", c.UserID()).Str("room", roomID).Msg("joined room")
	}

	members := rt.registry.MembersOf(roomID)
	others := make([]string, 0, len(members))
	for _, m := range members {
		if m.ID != c.ID {
			others = append(others, m.UserID())
		}
	}
	if err := c.Deliver(&Event{Kind: EventJoined, Room: roomID, Members: others, At: time.Now()}); err != nil {
		rt.log.Warn().Err(err).Str("conn_id", c.ID).Msg("join ack not delivered")
	}
	return nil
}

func (rt *Router) leave(c *Conn, roomID string) {
	if roomID == "" || c.Room() != roomID {
		return
	}
	c.setRoom("")
	rt.removeMember(roomID, c)
}

func (rt *Router) removeMember(roomID string, c *Conn) {
	if rt.registry.Leave(roomID, c.ID) {
		rt.presence.Left(roomID, c)
		rt.log.Debug().Str("conn_id", c.ID).Str("user_id", c.UserID()).Str("room", roomID).Msg("left room")
	}
}

func (rt *Router) relay(c *Conn, cmd Command) error {
	if cmd.Room == "" || c.Room() != cmd.Room {
		return coreError(ErrCodeNotInRoom, "not in room "+cmd.Room, ErrNotInRoom)
	}

	ev := &Event{Room: cmd.Room, At: time.Now()}
	switch cmd.Kind {
	case CommandPage:
		if cmd.PageIndex < 0 {
			return coreError(ErrCodeBadRequest, "pageIndex must be >= 0", ErrBadRequest)
		}
		ev.Kind = EventPage
		ev.PageIndex = cmd.PageIndex
	case CommandChat:
		ev.Kind = EventChat
		ev.UserID = c.UserID()
		ev.Text = cmd.Text
	case CommandReaction:
		ev.Kind = EventReaction
		ev.UserID = c.UserID()
		ev.Emoji = cmd.Emoji
	}

	rt.b.broadcast(cmd.Room, c.ID, ev)
	return nil
}
