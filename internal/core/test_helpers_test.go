package core

import (
	"testing"
	"time"

	"github.com/vovakirdan/readsync-server/internal/auth"
)

func mustEvent(t *testing.T, c *Conn, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-c.Events():
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received by %s", kind, c.ID)
	return nil
}

// noEvent fails if c has any queued event of kind.
func noEvent(t *testing.T, c *Conn, kind EventKind) {
	t.Helper()

	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == kind {
				t.Fatalf("unexpected event %+v for %s", ev, c.ID)
			}
		default:
			return
		}
	}
}

func drain(c *Conn) {
	for {
		select {
		case <-c.Events():
		default:
			return
		}
	}
}

func newAuthedConn(t *testing.T, id, user string) *Conn {
	t.Helper()

	c := NewConn(id, 16)
	if err := c.Authenticate(auth.Identity{UserID: user, Claims: map[string]any{"sub": user, "email": user + "@example.com"}}); err != nil {
		t.Fatalf("authenticate %s: %v", id, err)
	}
	return c
}
