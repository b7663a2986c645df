package core

import "github.com/rs/zerolog"

// broadcaster fans an event out to a registry snapshot.
type broadcaster struct {
	registry *Registry
	log      *zerolog.Logger
}

// broadcast delivers ev to every member of roomID except exceptID and returns
// how many peers accepted it. A peer that cannot accept the event is closed;
// its own task then runs the ordinary disconnect cleanup.
func (b *broadcaster) broadcast(roomID, exceptID string, ev *Event) int {
	delivered := 0
	for _, peer := range b.registry.MembersOf(roomID) {
		if peer.ID == exceptID {
			continue
		}
		if err := peer.Deliver(ev); err != nil {
			b.log.Warn().
				Err(err).
				Str("room", roomID).
				Str("conn_id", peer.ID).
				Msg("delivery failed, dropping peer")
			peer.Close()
			continue
		}
		delivered++
	}
	return delivered
}
