package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/readsync-server/internal/auth"
	"github.com/vovakirdan/readsync-server/internal/config"
	"github.com/vovakirdan/readsync-server/internal/log"
	"github.com/vovakirdan/readsync-server/internal/proto"
)

func TestHandlerServesHealth(t *testing.T) {
	cfg := config.Default()
	cfg.JWTSecret = "secret"
	application := New(&cfg, log.Disabled())

	ts := httptest.NewServer(application.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := config.Default()
	cfg.Addr = addr
	cfg.ShutdownTimeout = time.Second
	application := New(&cfg, log.Disabled())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestJWTLeewayReachesVerifier(t *testing.T) {
	cfg := config.Default()
	cfg.JWTSecret = "secret"

	expired, err := auth.IssueToken(jwtConfig(&cfg), "alice", nil, -10*time.Second)
	require.NoError(t, err)

	_, err = auth.NewVerifier(jwtConfig(&cfg)).Verify(expired)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	cfg.JWTLeeway = time.Minute
	identity, err := auth.NewVerifier(jwtConfig(&cfg)).Verify(expired)
	require.NoError(t, err)
	require.Equal(t, "alice", identity.UserID)
}

func TestHandlerUpgradesWebSocket(t *testing.T) {
	cfg := config.Default()
	cfg.JWTSecret = "secret"
	application := New(&cfg, log.Disabled())

	ts := httptest.NewServer(application.Handler())
	defer ts.Close()

	token, err := auth.IssueToken(jwtConfig(&cfg), "alice", nil, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, strings.Replace(ts.URL, "http", "ws", 1)+"/ws?token="+token, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var welcome proto.Outbound
	require.NoError(t, wsjson.Read(ctx, conn, &welcome))
	require.Equal(t, proto.OutboundTypeEvent, welcome.Type)
	require.Equal(t, proto.EventWelcome, welcome.Event)

	// Plain routes still go through gin.
	resp, err := ts.Client().Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
