package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/vovakirdan/readsync-server/internal/auth"
	"github.com/vovakirdan/readsync-server/internal/proto"
)

var errUnsupportedVersion = errors.New("unsupported protocol version")

// TokenVerifier validates a bearer token and yields the caller's identity.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// tokenFromRequest extracts a handshake credential. Browsers cannot set
// headers on a WebSocket upgrade, so the query string is checked first.
func tokenFromRequest(r *stdhttp.Request) string {
	q := r.URL.Query()
	if token := q.Get("token"); token != "" {
		return token
	}
	if token := q.Get("access_token"); token != "" {
		return token
	}

	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(authz) > len(prefix) && strings.EqualFold(authz[:len(prefix)], prefix) {
		return strings.TrimSpace(authz[len(prefix):])
	}
	return ""
}

// authenticate runs the token verifier exactly once for conn. Without a
// handshake credential the first frame must be a hello carrying the token,
// and it must arrive within the configured grace period.
func (h *WSHandler) authenticate(ctx context.Context, r *stdhttp.Request, conn *websocket.Conn) (*auth.Identity, error) {
	if token := tokenFromRequest(r); token != "" {
		return h.verifier.Verify(token)
	}

	actx, cancel := context.WithTimeout(ctx, h.cfg.AuthTimeout)
	defer cancel()

	typ, data, err := conn.Read(actx)
	if err != nil {
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: nothing presented within %s", auth.ErrMissingToken, h.cfg.AuthTimeout)
		}
		return nil, fmt.Errorf("read hello: %w", err)
	}

	var inbound proto.Inbound
	if typ != websocket.MessageText || json.Unmarshal(data, &inbound) != nil || inbound.Type != proto.InboundTypeHello {
		return nil, fmt.Errorf("%w: first frame must be hello", auth.ErrMissingToken)
	}

	var hello proto.HelloData
	if len(inbound.Data) > 0 {
		if err := json.Unmarshal(inbound.Data, &hello); err != nil {
			return nil, fmt.Errorf("%w: malformed hello", auth.ErrMissingToken)
		}
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return nil, fmt.Errorf("%w: client %d, server %d", errUnsupportedVersion, hello.Protocol, proto.ProtocolVersion)
	}

	return h.verifier.Verify(hello.Token)
}
