package http

import (
	stdhttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/readsync-server/internal/config"
	"github.com/vovakirdan/readsync-server/internal/core"
)

// NewServer builds an HTTP server with the WebSocket endpoint and the plain
// health and stats routes.
func NewServer(router *core.Router, verifier TokenVerifier, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))
	engine.Use(OriginMiddleware(cfg.AllowedOrigins))

	api := NewAPIHandlers(router.Registry(), logger)
	engine.GET("/", api.Health)
	engine.GET("/health", api.Health)
	engine.GET("/api/stats", api.Stats)
	engine.NoRoute(api.NotFound)

	// gin refuses to hijack after the 101 header is written, so the upgrade
	// is served by the mux directly.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(router, verifier, cfg, logger))
	mux.Handle("/", engine)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
