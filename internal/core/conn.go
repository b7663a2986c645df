package core

import (
	"fmt"
	"sync"

	"github.com/vovakirdan/readsync-server/internal/auth"
)

// ConnState is the lifecycle stage of a connection.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateJoined
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// DefaultSendBuffer is used when NewConn is given a non-positive buffer size.
const DefaultSendBuffer = 32

// Conn is one client connection as seen by the core layer.
// Identity and room are owned by the connection's own task; other goroutines
// only enqueue events and may close it.
type Conn struct {
	ID string

	events chan *Event
	done   chan struct{}

	mu       sync.Mutex
	state    ConnState
	identity auth.Identity
	room     string

	closeOnce sync.Once
	leaveOnce sync.Once
}

// NewConn constructs a connection in the connecting state.
func NewConn(id string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Conn{
		ID:     id,
		events: make(chan *Event, buffer),
		done:   make(chan struct{}),
	}
}

// Authenticate attaches the verified identity. It is only valid once, from the
// connecting state.
func (c *Conn) Authenticate(id auth.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnecting {
		return fmt.Errorf("authenticate in state %s", c.state)
	}
	c.identity = id
	c.state = StateAuthenticated
	return nil
}

// Identity returns the identity attached at authentication.
func (c *Conn) Identity() auth.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// UserID is shorthand for Identity().UserID.
func (c *Conn) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity.UserID
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Room returns the joined room id, or "" if none.
func (c *Conn) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// setRoom records membership. The room is recorded even after close so the
// disconnect path can still find and clean it up.
func (c *Conn) setRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.room = room
	if c.state == StateClosed {
		return
	}
	if room == "" {
		c.state = StateAuthenticated
	} else {
		c.state = StateJoined
	}
}

func (c *Conn) takeRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	room := c.room
	c.room = ""
	return room
}

// Events is drained by the transport writer.
func (c *Conn) Events() <-chan *Event {
	return c.events
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close marks the connection closed. Returns true on the first call only.
func (c *Conn) Close() bool {
	closed := false
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		close(c.done)
		closed = true
	})
	return closed
}

// Deliver enqueues an event without blocking.
func (c *Conn) Deliver(ev *Event) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrQueueFull
	}
}
