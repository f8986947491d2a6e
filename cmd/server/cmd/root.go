// Package cmd implements the server command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/Togather-Foundation/rsvp/internal/config"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds a fresh command tree. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	serve := newServeCommand(opts)

	root := &cobra.Command{
		Use:   "server",
		Short: "RSVP server - event listing and registration backend",
		Long: `RSVP server exposes a JSON API where organizers publish events and
attendees register for them.

The server supports:
- Account registration and JWT login for organizers and attendees
- Organizer-owned event management
- Attendee registrations, attendee lists and cancellation
- PostgreSQL storage with embedded migrations, or an in-memory store`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:         serve.RunE,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (optional, uses env vars by default)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")
	// The default action is serve, so its flags are accepted at the root too.
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newMigrateCommand(opts))
	root.AddCommand(newTokenCommand(opts))
	root.AddCommand(newVersionCommand())
	root.AddCommand(newHealthcheckCommand())
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies the log
// flags and any command-specific overrides.
func loadConfig(opts *globalOptions, overrides ...func(*config.Config)) (config.Config, error) {
	all := append([]func(*config.Config){func(c *config.Config) {
		if opts.logLevel != "" {
			c.Logging.Level = opts.logLevel
		}
		if opts.logFormat != "" {
			c.Logging.Format = opts.logFormat
		}
	}}, overrides...)
	return config.LoadFile(opts.configPath, all...)
}
