package app

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/readsync-server/internal/auth"
	"github.com/vovakirdan/readsync-server/internal/config"
	"github.com/vovakirdan/readsync-server/internal/core"
	transporthttp "github.com/vovakirdan/readsync-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	router          *core.Router
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	verifier := auth.NewVerifier(jwtConfig(cfg))
	if !verifier.Configured() {
		logger.Warn().Msg("jwt secret not configured, every connection will be rejected")
	}

	router := core.NewRouter(core.NewRegistry(), logger)
	server := transporthttp.NewServer(router, verifier, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		router:          router,
		log:             logger,
	}
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   cfg.JWTLeeway,
	}
}

// Handler exposes the HTTP handler, mostly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	// Hijacked WebSocket connections are not tracked by Shutdown; tying their
	// request contexts to ctx makes them wind down with the server.
	a.server.BaseContext = func(net.Listener) context.Context { return ctx }

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		stats := a.router.Registry().Stats()
		a.log.Info().Int("rooms", stats.Rooms).Int("members", stats.Members).Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
