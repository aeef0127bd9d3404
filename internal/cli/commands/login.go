package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/cli/prompt"
	"github.com/ecomstore/storefront/internal/cli/userconfig"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set STOREFRONT_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set STOREFRONT_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, username, password string) error {
	// Check for environment variables (useful for scripts)
	if username == "" {
		username = os.Getenv("STOREFRONT_USERNAME")
	}
	if password == "" {
		password = os.Getenv("STOREFRONT_PASSWORD")
	}

	interactive := prompt.Interactive()

	if username == "" {
		if !interactive {
			return fmt.Errorf("username is required (use --username flag or STOREFRONT_USERNAME env var)")
		}
		last := ""
		if uc, err := userconfig.Load(); err == nil {
			last = uc.LastUsername
		}
		u, err := prompt.Line("Username", last)
		if err != nil {
			return err
		}
		username = u
	}

	if password == "" {
		if !interactive {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or STOREFRONT_PASSWORD env var)")
		}
		p, err := prompt.Password("Password")
		if err != nil {
			return err
		}
		password = p
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(a.out, "Logging in to %s...\n", a.cfg.API.BaseURL)

	user, err := a.session.Login(cmd.Context(), username, password)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return fmt.Errorf("login failed: credentials not recognized")
		}
		return fmt.Errorf("login failed: %w", explain(err))
	}

	if err := userconfig.Update(func(c *userconfig.UserConfig) { c.LastUsername = username }); err != nil {
		fmt.Fprintf(a.errOut, "Warning: failed to save user config: %v\n", err)
	}

	fmt.Fprintln(a.out, "✓ Login successful!")
	fmt.Fprintf(a.out, "  User: %s\n", user.DisplayName())
	if user.IsStaff {
		fmt.Fprintln(a.out, "  Role: Staff")
	}

	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Logout(); err != nil {
				return fmt.Errorf("failed to clear stored tokens: %w", err)
			}
			fmt.Fprintln(a.out, "✓ Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Username: %s\n", user.Username)
			if user.Email != "" {
				fmt.Fprintf(a.out, "Email:    %s\n", user.Email)
			}
			if name := user.FirstName + " " + user.LastName; name != " " {
				fmt.Fprintf(a.out, "Name:     %s\n", name)
			}
			if user.IsStaff {
				fmt.Fprintln(a.out, "Role:     Staff")
			}
			return nil
		},
	}
}
