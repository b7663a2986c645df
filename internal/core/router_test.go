package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/readsync-server/internal/auth"
)

func joinRoom(t *testing.T, rt *Router, c *Conn, roomID string) {
	t.Helper()

	require.NoError(t, rt.Dispatch(context.Background(), c, Command{Kind: CommandJoin, Room: roomID}))
	ack := mustEvent(t, c, EventJoined)
	require.Equal(t, roomID, ack.Room)
}

func TestRouterPageSyncAndDisconnectScenario(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)
	ctx := context.Background()

	alice := newAuthedConn(t, "c1", "alice")
	bob := newAuthedConn(t, "c2", "bob")

	joinRoom(t, rt, alice, "R1")
	joinRoom(t, rt, bob, "R1")

	joined := mustEvent(t, alice, EventPresence)
	require.Equal(t, PresenceJoin, joined.Presence)
	require.Equal(t, "bob", joined.UserID)
	// The joiner is not told about itself.
	noEvent(t, bob, EventPresence)

	require.NoError(t, rt.Dispatch(ctx, alice, Command{Kind: CommandPage, Room: "R1", PageIndex: 5}))

	page := mustEvent(t, bob, EventPage)
	require.Equal(t, 5, page.PageIndex)
	require.Equal(t, "R1", page.Room)
	noEvent(t, alice, EventPage)

	rt.Disconnect(bob)

	left := mustEvent(t, alice, EventPresence)
	require.Equal(t, PresenceLeave, left.Presence)
	require.Equal(t, "bob", left.UserID)
	require.False(t, rt.Registry().IsMember("R1", bob.ID))
	require.Equal(t, StateClosed, bob.State())
}

func TestRouterJoinAckListsOtherMembers(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)

	alice := newAuthedConn(t, "c1", "alice")
	bob := newAuthedConn(t, "c2", "bob")
	joinRoom(t, rt, alice, "R1")

	require.NoError(t, rt.Dispatch(context.Background(), bob, Command{Kind: CommandJoin, Room: "R1"}))
	ack := mustEvent(t, bob, EventJoined)
	require.Equal(t, []string{"alice"}, ack.Members)
	require.Equal(t, StateJoined, bob.State())
}

func TestRouterRejoinSameRoomIsNoop(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)

	alice := newAuthedConn(t, "c1", "alice")
	bob := newAuthedConn(t, "c2", "bob")
	joinRoom(t, rt, alice, "R1")
	joinRoom(t, rt, bob, "R1")
	mustEvent(t, alice, EventPresence)

	joinRoom(t, rt, bob, "R1")
	noEvent(t, alice, EventPresence)
	require.Len(t, rt.Registry().MembersOf("R1"), 2)
}

func TestRouterChatAndReactionAreStampedWithSender(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)
	ctx := context.Background()

	alice := newAuthedConn(t, "c1", "alice")
	bob := newAuthedConn(t, "c2", "bob")
	carol := newAuthedConn(t, "c3", "carol")
	joinRoom(t, rt, alice, "R1")
	joinRoom(t, rt, bob, "R1")
	joinRoom(t, rt, carol, "R1")
	drain(alice)
	drain(bob)

	require.NoError(t, rt.Dispatch(ctx, alice, Command{Kind: CommandChat, Room: "R1", Text: "hello"}))
	for _, peer := range []*Conn{bob, carol} {
		ev := mustEvent(t, peer, EventChat)
		require.Equal(t, "alice", ev.UserID)
		require.Equal(t, "hello", ev.Text)
		require.False(t, ev.At.IsZero())
	}
	noEvent(t, alice, EventChat)

	require.NoError(t, rt.Dispatch(ctx, bob, Command{Kind: CommandReaction, Room: "R1", Emoji: "🔥"}))
	ev := mustEvent(t, alice, EventReaction)
	require.Equal(t, "bob", ev.UserID)
	require.Equal(t, "🔥", ev.Emoji)
	noEvent(t, bob, EventReaction)
}

func TestRouterBroadcastStaysInRoom(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)

	alice := newAuthedConn(t, "c1", "alice")
	bob := newAuthedConn(t, "c2", "bob")
	dave := newAuthedConn(t, "c4", "dave")
	joinRoom(t, rt, alice, "R1")
	joinRoom(t, rt, bob, "R1")
	joinRoom(t, rt, dave, "R2")

	require.NoError(t, rt.Dispatch(context.Background(), alice, Command{Kind: CommandPage, Room: "R1", PageIndex: 1}))
	mustEvent(t, bob, EventPage)
	noEvent(t, dave, EventPage)
}

func TestRouterNotInRoom(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)
	ctx := context.Background()

	alice := newAuthedConn(t, "c1", "alice")
	bob := newAuthedConn(t, "c2", "bob")
	joinRoom(t, rt, alice, "R1")
	joinRoom(t, rt, bob, "R2")

	err := rt.Dispatch(ctx, alice, Command{Kind: CommandChat, Room: "R2", Text: "psst"})
	require.ErrorIs(t, err, ErrNotInRoom)

	var ce *CoreError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, ErrCodeNotInRoom, ce.Code)

	noEvent(t, bob, EventChat)
	require.Equal(t, StateJoined, alice.State())
	require.True(t, rt.Registry().IsMember("R1", alice.ID))

	lonely := newAuthedConn(t, "c3", "carol")
	require.ErrorIs(t, rt.Dispatch(ctx, lonely, Command{Kind: CommandPage, Room: "R1"}), ErrNotInRoom)
}

func TestRouterSwitchingRoomsLeavesPrior(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)

	alice := newAuthedConn(t, "c1", "alice")
	bob := newAuthedConn(t, "c2", "bob")
	joinRoom(t, rt, alice, "R1")
	joinRoom(t, rt, bob, "R1")
	drain(alice)

	joinRoom(t, rt, bob, "R2")

	left := mustEvent(t, alice, EventPresence)
	require.Equal(t, PresenceLeave, left.Presence)
	require.Equal(t, "bob", left.UserID)
	require.False(t, rt.Registry().IsMember("R1", bob.ID))
	require.True(t, rt.Registry().IsMember("R2", bob.ID))
	require.Equal(t, "R2", bob.Room())
}

func TestRouterExplicitLeave(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)
	ctx := context.Background()

	alice := newAuthedConn(t, "c1", "alice")
	joinRoom(t, rt, alice, "R1")

	require.NoError(t, rt.Dispatch(ctx, alice, Command{Kind: CommandLeave, Room: "R1"}))
	require.Empty(t, rt.Registry().Rooms())
	require.Equal(t, StateAuthenticated, alice.State())

	// Leaving again, or leaving a room never joined, is a no-op.
	require.NoError(t, rt.Dispatch(ctx, alice, Command{Kind: CommandLeave, Room: "R1"}))
	require.NoError(t, rt.Dispatch(ctx, alice, Command{Kind: CommandLeave, Room: "elsewhere"}))

	// A fresh join recreates the room.
	joinRoom(t, rt, alice, "R1")
	require.Equal(t, []string{"R1"}, rt.Registry().Rooms())
}

func TestRouterRejectsUnauthenticated(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)
	c := NewConn("c1", 4)

	err := rt.Dispatch(context.Background(), c, Command{Kind: CommandJoin, Room: "R1"})
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.Empty(t, rt.Registry().Rooms())
}

func TestRouterDropsEventsAfterClose(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)
	ctx := context.Background()

	alice := newAuthedConn(t, "c1", "alice")
	bob := newAuthedConn(t, "c2", "bob")
	joinRoom(t, rt, alice, "R1")
	joinRoom(t, rt, bob, "R1")
	drain(alice)

	rt.Disconnect(bob)
	rt.Disconnect(bob)
	mustEvent(t, alice, EventPresence)
	noEvent(t, alice, EventPresence)

	require.NoError(t, rt.Dispatch(ctx, bob, Command{Kind: CommandPage, Room: "R1", PageIndex: 3}))
	require.NoError(t, rt.Dispatch(ctx, bob, Command{Kind: CommandJoin, Room: "R1"}))
	noEvent(t, alice, EventPage)
	require.False(t, rt.Registry().IsMember("R1", bob.ID))
}

func TestRouterIsolatesFailedDelivery(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)
	ctx := context.Background()

	alice := newAuthedConn(t, "c1", "alice")
	carol := newAuthedConn(t, "c3", "carol")
	slow := NewConn("slow", 1)
	require.NoError(t, slow.Authenticate(auth.Identity{UserID: "bob"}))

	joinRoom(t, rt, alice, "R1")
	joinRoom(t, rt, slow, "R1")
	joinRoom(t, rt, carol, "R1")
	drain(alice)
	drain(slow)

	// Fill the slow peer's single-slot queue.
	require.NoError(t, slow.Deliver(&Event{Kind: EventPage}))

	require.NoError(t, rt.Dispatch(ctx, alice, Command{Kind: CommandChat, Room: "R1", Text: "hi"}))
	mustEvent(t, carol, EventChat)

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow peer was not closed")
	}

	// The slow peer's own task performs the ordinary cleanup.
	rt.Disconnect(slow)
	require.False(t, rt.Registry().IsMember("R1", slow.ID))
	left := mustEvent(t, alice, EventPresence)
	require.Equal(t, "bob", left.UserID)
}

func TestRouterRejectsNegativePage(t *testing.T) {
	rt := NewRouter(NewRegistry(), nil)

	alice := newAuthedConn(t, "c1", "alice")
	joinRoom(t, rt, alice, "R1")

	err := rt.Dispatch(context.Background(), alice, Command{Kind: CommandPage, Room: "R1", PageIndex: -1})
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestDeliverToClosedConn(t *testing.T) {
	c := NewConn("c1", 1)
	require.True(t, c.Close())
	require.False(t, c.Close())

	err := c.Deliver(&Event{})
	require.ErrorIs(t, err, ErrConnClosed)
	require.True(t, IsDeliveryFailure(err))
}
