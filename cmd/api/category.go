package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xinodeprinz/edstock-server/internal/repository"
	"github.com/xinodeprinz/edstock-server/internal/service"
)

func newCategoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage product categories",
	}
	cmd.AddCommand(newCategoryAddCommand(ctx))
	return cmd
}

// newCategoryAddCommand seeds categories, which are read-only over HTTP
func newCategoryAddCommand(ctx *commandContext) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "add NAME...",
		Short: "Add one or more categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id != "" && len(args) > 1 {
				return fmt.Errorf("--id applies to a single category")
			}

			dbService, err := ctx.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer dbService.Close()

			svc := service.NewCategoryService(repository.NewCategoryRepository(dbService.DB()), ctx.logger)
			return addCategories(cmd.Context(), svc, id, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Category ID (generated when empty)")
	return cmd
}

func addCategories(ctx context.Context, svc service.CategoryService, id string, names []string, out io.Writer) error {
	for _, name := range names {
		category, err := svc.Create(ctx, id, name)
		if err != nil {
			return fmt.Errorf("add category %q: %w", name, err)
		}
		fmt.Fprintf(out, "Added category %s with ID %s\n", category.Name, category.CategoryID)
	}
	return nil
}
