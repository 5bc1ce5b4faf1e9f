// Package cli wires the adxrelay command line.
package cli

import (
	"errors"
	"fmt"
	"time"

	"go-adxlog/internal/config"
	"go-adxlog/internal/utils"

	"github.com/spf13/cobra"
)

// NewRootCommand returns the adxrelay command. Running it without a
// subcommand starts the relay through serve.
func NewRootCommand(serve func()) *cobra.Command {
	root := &cobra.Command{
		Use:           "adxrelay",
		Short:         "Relay log events to Azure Data Explorer",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serve()
			return nil
		},
	}
	root.AddCommand(newServeCommand(serve), newTokenCommand())
	return root
}

func newServeCommand(serve func()) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serve()
			return nil
		},
	}
}

type tokenOptions struct {
	subject string
	secret  string
	ttl     time.Duration
}

func newTokenCommand() *cobra.Command {
	var opts tokenOptions
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the ingest route",
		Long:  "Issue an HS256 bearer token signed with JWT_SECRET (or --secret) for a calling application.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.subject, "subject", "", "application name stored as the token subject")
	flags.StringVar(&opts.secret, "secret", "", "signing secret, defaults to JWT_SECRET")
	flags.DurationVar(&opts.ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func runToken(cmd *cobra.Command, opts tokenOptions) error {
	if opts.ttl <= 0 {
		return errors.New("--ttl must be positive")
	}
	secret := opts.secret
	if secret == "" {
		cfg, err := config.LoadConfig(nil)
		if err != nil {
			return err
		}
		secret = cfg.JWTSecret
	}
	if secret == "" {
		return errors.New("no signing secret: set JWT_SECRET or pass --secret")
	}

	token, err := utils.GenerateToken(opts.subject, secret, opts.ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
