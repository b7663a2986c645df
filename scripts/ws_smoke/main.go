package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/readsync-server/internal/auth"
	"github.com/vovakirdan/readsync-server/internal/proto"
)

// Two readers join one room; the first turns a page and the second must see it.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HS256 secret used to mint test tokens")
	room := flag.String("room", "smoke-book", "room id")
	page := flag.Int("page", 7, "page index to share")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *secret == "" {
		return errors.New("a secret is required (flag -secret or JWT_SECRET)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	leader, err := connect(ctx, *addr, *secret, "smoke-leader")
	if err != nil {
		return err
	}
	defer leader.Close(websocket.StatusNormalClosure, "bye")

	follower, err := connect(ctx, *addr, *secret, "smoke-follower")
	if err != nil {
		return err
	}
	defer follower.Close(websocket.StatusNormalClosure, "bye")

	for _, conn := range []*websocket.Conn{leader, follower} {
		if err := send(ctx, conn, proto.InboundTypeJoin, proto.RoomData{RoomID: *room}); err != nil {
			return err
		}
		if _, err := await(ctx, conn, proto.EventJoined); err != nil {
			return err
		}
	}

	if err := send(ctx, leader, proto.InboundTypePage, proto.PageData{RoomID: *room, PageIndex: page}); err != nil {
		return err
	}

	raw, err := await(ctx, follower, proto.EventPage)
	if err != nil {
		return err
	}
	var evt proto.EventPageData
	if err := json.Unmarshal(raw, &evt); err != nil {
		return fmt.Errorf("unmarshal page: %w", err)
	}
	if evt.PageIndex != *page {
		return fmt.Errorf("follower saw page %d, want %d", evt.PageIndex, *page)
	}

	fmt.Printf("page sync ok: room=%s page=%d\n", evt.RoomID, evt.PageIndex)
	return nil
}

func connect(ctx context.Context, addr, secret, user string) (*websocket.Conn, error) {
	token, err := auth.IssueToken(auth.JWTConfig{Secret: []byte(secret)}, user, nil, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("mint token for %s: %w", user, err)
	}

	conn, _, err := websocket.Dial(ctx, addr+"?token="+token, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", user, err)
	}
	if _, err := await(ctx, conn, proto.EventWelcome); err != nil {
		conn.CloseNow()
		return nil, err
	}
	return conn, nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// await reads frames until the named event arrives and returns its payload.
func await(ctx context.Context, conn *websocket.Conn, event string) (json.RawMessage, error) {
	for {
		var frame struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if frame.Error != nil {
			return nil, fmt.Errorf("server error %s: %s", frame.Error.Code, frame.Error.Msg)
		}
		if frame.Event == event {
			return frame.Data, nil
		}
		fmt.Printf("skipping event=%s\n", frame.Event)
	}
}
