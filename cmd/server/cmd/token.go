package cmd

import (
	"fmt"

	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/config"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	userID   int64
	username string
	role     string
}

// newTokenCommand signs a token with the configured secret. It does not
// check that the user exists.
func newTokenCommand(global *globalOptions) *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		Long: `Issue a signed bearer token using JWT_SECRET.

Example:
  server token --user-id 1 --username alice --role Organizer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := auth.ParseRole(opts.role)
			if err != nil {
				return err
			}
			if opts.userID <= 0 {
				return fmt.Errorf("--user-id must be positive")
			}

			cfg, err := loadConfig(global, func(c *config.Config) { c.Storage = config.StorageMemory })
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}

			tokens := auth.NewTokenService(cfg.Auth.JWTSecret, auth.DefaultTokenTTL, cfg.Auth.JWTIssuer)
			token, err := tokens.Issue(auth.Identity{UserID: opts.userID, Username: opts.username, Role: role})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&opts.userID, "user-id", 0, "user id to embed")
	cmd.Flags().StringVar(&opts.username, "username", "", "username to embed")
	cmd.Flags().StringVar(&opts.role, "role", "", "Organizer or Attendee")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
