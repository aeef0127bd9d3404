package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ecomstore/storefront/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the storefront command tree
func NewRootCmd() *cobra.Command {
	commands.Version = version

	rootCmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront - shop from the terminal",
		Long: `Storefront CLI - browse the catalog, manage your cart and place orders.

Staff accounts can also manage products and order statuses with the
admin commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("verbose", false, "Show debug logs")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storefront version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewProductsCmd())
	rootCmd.AddCommand(commands.NewCartCmd())
	rootCmd.AddCommand(commands.NewCheckoutCmd())
	rootCmd.AddCommand(commands.NewOrdersCmd())
	rootCmd.AddCommand(commands.NewAdminCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
