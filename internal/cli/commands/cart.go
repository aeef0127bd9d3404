package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewCartCmd creates the cart command
func NewCartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the shopping cart",
		RunE:  runCartShow,
	}

	var qty int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := positiveArg("product id", args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(a *app) error {
				if err := a.shop.AddToCart(cmd.Context(), id, qty); err != nil {
					return explain(err)
				}
				fmt.Fprintf(a.out, "✓ Added %d x product %d to cart\n", qty, id)
				return nil
			})
		},
	}
	add.Flags().IntVarP(&qty, "qty", "q", 1, "Quantity")

	update := &cobra.Command{
		Use:   "update <item-id> <quantity>",
		Short: "Change the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := positiveArg("item id", args[0])
			if err != nil {
				return err
			}
			n, err := positiveArg("quantity", args[1])
			if err != nil {
				return err
			}
			return withSession(cmd, func(a *app) error {
				if err := a.shop.UpdateCartItem(cmd.Context(), id, n); err != nil {
					return explain(err)
				}
				fmt.Fprintf(a.out, "✓ Item %d quantity set to %d\n", id, n)
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:     "rm <item-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a line from the cart",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := positiveArg("item id", args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(a *app) error {
				if err := a.shop.RemoveCartItem(cmd.Context(), id); err != nil {
					return explain(err)
				}
				fmt.Fprintf(a.out, "✓ Item %d removed\n", id)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{Use: "show", Short: "Show the cart", RunE: runCartShow})
	cmd.AddCommand(add, update, remove)

	return cmd
}

func runCartShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(a *app) error {
		cart, err := a.shop.GetCart(cmd.Context())
		if err != nil {
			return explain(err)
		}

		if cart.Empty() {
			fmt.Fprintln(a.out, "Your cart is empty")
			return nil
		}

		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ITEM\tPRODUCT\tQTY\tPRICE\tTOTAL")
		for _, it := range cart.Items {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", it.ID, it.ProductName, it.Quantity, it.UnitPrice.Display(), it.LineTotal.Display())
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "\nTotal: %s\n", cart.TotalPrice.Display())
		return nil
	})
}

// withSession runs fn with an app whose session resolved to a user
func withSession(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireSession(cmd.Context()); err != nil {
		return err
	}
	return fn(a)
}

func positiveArg(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", name, s)
	}
	return n, nil
}
