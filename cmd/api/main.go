package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // set via ldflags at build time

var rootCmd = &cobra.Command{
	Use:           "ticket-relay",
	Short:         "Relay between the ticket dashboard and the ticketing backend",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&serveOpts.envFiles, "env-file", nil, "dotenv files to load before the environment")
	rootCmd.PersistentFlags().StringVar(&serveOpts.port, "port", "", "override APP_PORT")
	rootCmd.PersistentFlags().BoolVar(&serveOpts.mock, "mock", false, "serve canned data instead of calling the backend (development only)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
