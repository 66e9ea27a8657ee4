package main

import (
	"github.com/spf13/cobra"

	"gatehouse/cmd/internal/app"
)

// NewRootCmd creates the root command for the gatehouse CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Account sessions and server-join handshakes",
		Long: `gatehouse issues login sessions and the short-lived connect tokens
game servers redeem to confirm a joining player's identity.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashPasswordCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		Long: `Run the HTTP API, the expiry sweeper and the registration listener.
Settings come from the optional --config YAML file, overridden by the
environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Serve(cmd.Context(), configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "YAML config file path")

	return cmd
}
