package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xinodeprinz/edstock-server/internal/domain"
	"github.com/xinodeprinz/edstock-server/internal/repository"
	"github.com/xinodeprinz/edstock-server/internal/service"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users from the command line",
	}
	cmd.AddCommand(newUserCreateCommand(ctx))
	return cmd
}

// newUserCreateCommand creates users without a token, which is how the first
// super admin of a fresh database gets in.
func newUserCreateCommand(ctx *commandContext) *cobra.Command {
	var input service.CreateUserInput
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user (use --role SUPER_ADMIN for the first account)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbService, err := ctx.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer dbService.Close()

			svc := service.NewUserService(repository.NewUserRepository(dbService.DB()), ctx.config.JWT.Secret, ctx.config.JWT.Expiry, ctx.logger)
			input.Role = domain.Role(strings.ToUpper(strings.TrimSpace(role)))
			return createUser(cmd.Context(), svc, input, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&input.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&input.Email, "email", "", "Sign-in email")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleSuperAdmin), "SUPER_ADMIN, ADMIN or STAFF")
	cmd.Flags().StringVar(&input.Password, "password", "", "Initial password (at least 8 characters)")
	cmd.Flags().StringVar(&input.UserID, "id", "", "User ID (generated when empty)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func createUser(ctx context.Context, svc service.UserService, input service.CreateUserInput, out io.Writer) error {
	user, err := svc.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(out, "Created %s %s <%s> with ID %s\n", user.Role, user.Name, user.Email, user.UserID)
	return nil
}
