package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "movieclub",
		Short:         "Movie club schedule service",
		Long:          "Serves the movie club schedule API. Configuration comes from MOVIECLUB_* environment variables and an optional .env file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadDotEnv()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.AddCommand(newCredentialsCommand())

	return rootCmd
}
