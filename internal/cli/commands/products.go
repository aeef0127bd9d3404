package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewProductsCmd creates the products command
func NewProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Browse the catalog",
	}

	cmd.AddCommand(newProductsListCmd())
	cmd.AddCommand(newProductsShowCmd())

	return cmd
}

func newProductsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			products, err := a.shop.ListProducts(cmd.Context())
			if err != nil {
				return explain(err)
			}

			if len(products) == 0 {
				fmt.Fprintln(a.out, "No products found")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSLUG\tNAME\tPRICE\tSTOCK")
			for _, p := range products {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", p.ID, p.Slug, p.Name, p.FinalPrice.Display(), p.Stock)
			}
			return w.Flush()
		},
	}
}

func newProductsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.shop.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}

			fmt.Fprintf(a.out, "%s (id %d)\n", p.Name, p.ID)
			if p.CategoryName != "" {
				fmt.Fprintf(a.out, "Category: %s\n", p.CategoryName)
			}
			if p.Discounted() {
				fmt.Fprintf(a.out, "Price:    %s (was %s)\n", p.DiscountPrice.Display(), p.Price.Display())
			} else {
				fmt.Fprintf(a.out, "Price:    %s\n", p.FinalPrice.Display())
			}
			fmt.Fprintf(a.out, "Stock:    %d\n", p.Stock)
			if p.Description != "" {
				fmt.Fprintf(a.out, "\n%s\n", p.Description)
			}
			return nil
		},
	}
}
