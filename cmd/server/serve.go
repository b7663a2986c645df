package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/readsync-server/internal/app"
	"github.com/vovakirdan/readsync-server/internal/config"
	"github.com/vovakirdan/readsync-server/internal/log"
)

type rootOptions struct {
	configPath string
	addr       string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "readsync-server",
		Short:         "Real-time relay for shared reading rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml")
	cmd.PersistentFlags().StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	})
	cmd.AddCommand(newTokenCmd(opts))

	return cmd
}

// loadConfig resolves configuration with CLI flags applied last.
func loadConfig(opts *rootOptions, bootstrap *zerolog.Logger) (config.Config, string, error) {
	cfg, path, err := config.Load(bootstrap, opts.configPath)
	if err != nil {
		return cfg, path, err
	}
	cfg.UpdateFrom(config.Config{Addr: opts.addr, LogLevel: opts.logLevel})

	if err := config.Validate(cfg); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, path, err := loadConfig(opts, log.New("info", "console"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", path).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(&cfg, logger)

	logger.Info().Str("addr", cfg.Addr).Msg("starting readsync server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
