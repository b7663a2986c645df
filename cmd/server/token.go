package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/readsync-server/internal/auth"
	"github.com/vovakirdan/readsync-server/internal/log"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		claims  map[string]string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token signed with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject == "" {
				return errors.New("--sub is required")
			}

			cfg, _, err := loadConfig(opts, log.Disabled())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			extra := make(map[string]any, len(claims))
			for k, v := range claims {
				extra[k] = v
			}

			token, err := auth.IssueToken(auth.JWTConfig{
				Secret:   []byte(cfg.JWTSecret),
				Issuer:   cfg.JWTIssuer,
				Audience: cfg.JWTAudience,
			}, subject, extra, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "sub", "", "user id placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringToStringVar(&claims, "claim", nil, "extra claims as key=value")

	return cmd
}
