package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var migrationsDir string

	ctx := newCommandContext(&migrationsDir)
	serveCmd := newServeCommand(ctx)

	rootCmd := &cobra.Command{
		Use:           "edstock",
		Short:         "Edstock inventory API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.syncLogger()
		},
		// Running the bare binary serves, as the container entrypoint expects
		RunE: serveCmd.RunE,
	}

	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "migrations", "Directory holding the SQL migrations")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newNotifyCommand(ctx))
	rootCmd.AddCommand(newUserCommand(ctx))
	rootCmd.AddCommand(newCategoryCommand(ctx))

	return rootCmd
}
