package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/cli/prompt"
	"github.com/ecomstore/storefront/internal/session"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var req session.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, req)
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "Username")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (will prompt if not provided)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func runRegister(cmd *cobra.Command, req session.RegisterRequest) error {
	if req.Password == "" {
		if !prompt.Interactive() {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag)")
		}
		p, err := prompt.Password("Password")
		if err != nil {
			return err
		}
		confirm, err := prompt.Password("Confirm password")
		if err != nil {
			return err
		}
		req.Password, req.Password2 = p, confirm
	} else {
		req.Password2 = req.Password
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Register(cmd.Context(), req); err != nil {
		var apiErr *apiclient.APIError
		switch {
		case errors.Is(err, session.ErrPasswordMismatch):
			return err
		case errors.As(err, &apiErr) && len(apiErr.FieldErrors()) > 0:
			return fmt.Errorf("registration failed:\n%s", formatFieldErrors(apiErr.FieldErrors()))
		default:
			return fmt.Errorf("registration failed: %w", explain(err))
		}
	}

	fmt.Fprintln(a.out, "✓ Account created. Run 'storefront login' to sign in.")
	return nil
}
