package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/readsync-server/internal/config"
	"github.com/vovakirdan/readsync-server/internal/core"
	"github.com/vovakirdan/readsync-server/internal/proto"
	"github.com/vovakirdan/readsync-server/internal/utils"
)

// maxCloseReason is the payload limit for a close frame reason.
const maxCloseReason = 123

// WSHandler upgrades HTTP connections, authenticates them and bridges them to
// the core router.
type WSHandler struct {
	router   *core.Router
	verifier TokenVerifier
	cfg      *config.Config
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(router *core.Router, verifier TokenVerifier, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{router: router, verifier: verifier, cfg: cfg, log: logger}
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if h.cfg.AllowAnyOrigin() {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Warn().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	client := core.NewConn(utils.NewID(), h.cfg.SendBuffer)
	logger := h.log.With().Str("conn_id", client.ID).Logger()

	identity, err := h.authenticate(ctx, r, conn)
	if err != nil {
		client.Close()
		h.reject(ctx, conn, &logger, err)
		return
	}
	if err := client.Authenticate(*identity); err != nil {
		logger.Error().Err(err).Msg("attach identity")
		return
	}
	defer h.router.Disconnect(client)

	logger = logger.With().Str("user_id", identity.UserID).Logger()
	logger.Debug().Msg("ws authenticated")

	if err := h.write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventWelcome,
		Data: proto.EventWelcomeData{
			UserID:   identity.UserID,
			ConnID:   client.ID,
			Protocol: proto.ProtocolVersion,
		},
	}); err != nil {
		logger.Warn().Err(err).Msg("write welcome")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.readLoop(gctx, conn, client, &logger) })
	g.Go(func() error { return h.writeLoop(gctx, conn, client, &logger) })
	if h.cfg.PingInterval > 0 {
		g.Go(func() error { return h.pingLoop(gctx, conn) })
	}
	err = g.Wait()

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case errors.Is(err, core.ErrConnClosed):
		// dropSlow already closed the socket.
		return
	case err != nil && !errors.Is(err, context.Canceled):
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = truncate(err.Error(), maxCloseReason)
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// reject reports an authentication failure and closes the socket. No event
// from this connection is ever dispatched.
func (h *WSHandler) reject(ctx context.Context, conn *websocket.Conn, logger *zerolog.Logger, err error) {
	code := authErrorCode(err)
	logger.Info().Err(err).Str("code", code).Msg("ws authentication failed")

	_ = h.write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: err.Error()},
	})
	conn.Close(websocket.StatusPolicyViolation, code)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn, logger *zerolog.Logger) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("read ws inbound")
			return err
		}

		if typ != websocket.MessageText {
			h.replyError(client, logger, badRequest("text frames only"))
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.replyError(client, logger, badRequest("malformed JSON"))
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			h.replyError(client, logger, protoErr)
			continue
		}

		if err := h.router.Dispatch(ctx, client, *cmd); err != nil {
			var ce *core.CoreError
			if !errors.As(err, &ce) {
				return fmt.Errorf("dispatch %s: %w", cmd.Kind, err)
			}
			h.replyError(client, logger, &proto.Error{Code: ce.Code, Msg: ce.Message})
		}
	}
}

// replyError queues an error for the sender only. Errors are advisory, so a
// full queue just drops them.
func (h *WSHandler) replyError(client *core.Conn, logger *zerolog.Logger, pe *proto.Error) {
	ev := &core.Event{Kind: core.EventError, Error: &core.CoreError{Code: pe.Code, Message: pe.Msg}, At: time.Now()}
	if err := client.Deliver(ev); core.IsDeliveryFailure(err) {
		logger.Debug().Err(err).Str("code", pe.Code).Msg("error reply dropped")
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn, logger *zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events():
			select {
			case <-client.Done():
				return h.dropSlow(conn, logger)
			default:
			}
			if err := h.write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Debug().Err(err).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return h.dropSlow(conn, logger)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dropSlow sends the overflow close frame while the reader is still running;
// once the group context is cancelled the socket is torn down without one.
func (h *WSHandler) dropSlow(conn *websocket.Conn, logger *zerolog.Logger) error {
	logger.Warn().Msg("ws connection dropped as too slow")
	if err := conn.Close(websocket.StatusTryAgainLater, "send queue overflow"); err != nil {
		logger.Debug().Err(err).Msg("close slow connection")
	}
	return core.ErrConnClosed
}

func (h *WSHandler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, out proto.Outbound) error {
	wctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
