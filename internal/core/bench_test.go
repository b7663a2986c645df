package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/vovakirdan/readsync-server/internal/auth"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := NewRouter(NewRegistry(), nil)
	// Room enough for every presence announcement made while joining.
	buffer := recipients + 64

	sender := NewConn("sender", buffer)
	_ = sender.Authenticate(auth.Identity{UserID: "sender"})
	_ = rt.Dispatch(ctx, sender, Command{Kind: CommandJoin, Room: "bench"})

	clients := make([]*Conn, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewConn(fmt.Sprintf("c%d", i), buffer)
		_ = c.Authenticate(auth.Identity{UserID: fmt.Sprintf("user%d", i)})
		_ = rt.Dispatch(ctx, c, Command{Kind: CommandJoin, Room: "bench"})
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	drain(target)
	for _, c := range clients[1:] {
		go func(cl *Conn) {
			for {
				select {
				case <-cl.Events():
				case <-ctx.Done():
					return
				}
			}
		}(c)
	}
	go func() {
		for {
			select {
			case <-sender.Events():
			case <-ctx.Done():
				return
			}
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = rt.Dispatch(ctx, sender, Command{
			Kind:      CommandPage,
			Room:      "bench",
			PageIndex: i,
		})
		<-target.Events()
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
