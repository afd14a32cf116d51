package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/xinodeprinz/edstock-server/internal/server"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	var threshold int

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Email the low-stock report to every super admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbService, err := ctx.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer dbService.Close()

			notifier := server.NewLowStockNotifier(ctx.config, dbService.DB(), ctx.logger, nil)
			report, runErr := notifier.Run(cmd.Context(), threshold)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&threshold, "threshold", 0, "Report products with stock below this value (default NOTIFY_THRESHOLD)")
	return cmd
}
