package http

import (
	"errors"

	"github.com/vovakirdan/readsync-server/internal/auth"
	"github.com/vovakirdan/readsync-server/internal/core"
	"github.com/vovakirdan/readsync-server/internal/proto"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin, proto.InboundTypeLeave:
		var data proto.RoomData
		if err := proto.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err.Error())
		}
		kind := core.CommandJoin
		if inbound.Type == proto.InboundTypeLeave {
			kind = core.CommandLeave
		}
		return &core.Command{Kind: kind, Room: data.RoomID}, nil
	case proto.InboundTypePage:
		var data proto.PageData
		if err := proto.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err.Error())
		}
		return &core.Command{Kind: core.CommandPage, Room: data.RoomID, PageIndex: *data.PageIndex}, nil
	case proto.InboundTypeChat:
		var data proto.ChatData
		if err := proto.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err.Error())
		}
		return &core.Command{Kind: core.CommandChat, Room: data.RoomID, Text: data.Message}, nil
	case proto.InboundTypeReaction:
		var data proto.ReactionData
		if err := proto.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err.Error())
		}
		return &core.Command{Kind: core.CommandReaction, Room: data.RoomID, Emoji: data.Emoji}, nil
	case proto.InboundTypeHello:
		return nil, badRequest("already authenticated")
	default:
		return nil, badRequest("unknown message type")
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventPage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPage,
			Data: proto.EventPageData{
				RoomID:    event.Room,
				PageIndex: event.PageIndex,
			},
		}
	case core.EventChat:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventChat,
			Data: proto.EventChatData{
				RoomID:  event.Room,
				UserID:  event.UserID,
				Message: event.Text,
				TS:      event.At.UnixMilli(),
			},
		}
	case core.EventReaction:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReaction,
			Data: proto.EventReactionData{
				RoomID: event.Room,
				UserID: event.UserID,
				Emoji:  event.Emoji,
				TS:     event.At.UnixMilli(),
			},
		}
	case core.EventPresence:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPresence,
			Data: proto.EventPresenceData{
				Type:   string(event.Presence),
				UserID: event.UserID,
			},
		}
	case core.EventJoined:
		members := event.Members
		if members == nil {
			members = []string{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventJoined,
			Data: proto.EventJoinedData{
				RoomID:  event.Room,
				Members: members,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return errorOutbound(event.Error)
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func errorOutbound(ce *core.CoreError) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: ce.Code, Msg: ce.Message},
	}
}

// authErrorCode maps a gate failure to its wire code.
func authErrorCode(err error) string {
	switch {
	case errors.Is(err, errUnsupportedVersion):
		return core.ErrCodeUnsupportedVersion
	case errors.Is(err, auth.ErrMissingToken):
		return core.ErrCodeMissingToken
	case errors.Is(err, auth.ErrInvalidToken):
		return core.ErrCodeInvalidToken
	default:
		return core.ErrCodeBadRequest
	}
}
