package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xinodeprinz/edstock-server/internal/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			dbService, err := database.New(cmd.Context(), ctx.config.Database)
			if err != nil {
				return err
			}
			defer dbService.Close()

			if action == "up" {
				return database.RunMigrations(cmd.Context(), dbService.DB(), ctx.migrations(), ctx.logger)
			}

			states, err := database.MigrationStatus(cmd.Context(), dbService.DB(), ctx.migrations())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tFILE")
			for _, st := range states {
				state := "pending"
				if st.Applied {
					state = "applied"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", st.Version, state, st.File)
			}
			return tw.Flush()
		},
	}
}
