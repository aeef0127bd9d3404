package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ecomstore/storefront/internal/models"
	"github.com/ecomstore/storefront/internal/storefront"
)

// NewOrdersCmd creates the orders command
func NewOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order"},
		Short:   "View your order history",
	}

	cmd.AddCommand(newOrdersListCmd(false))
	cmd.AddCommand(newOrderShowCmd(false))

	return cmd
}

func newOrdersListCmd(admin bool) *cobra.Command {
	var status, sortBy string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && status != storefront.StatusAll && !models.ValidOrderStatus(strings.ToLower(status)) {
				return fmt.Errorf("unknown status %q (valid: all, %s)", status, strings.Join(models.OrderStatuses, ", "))
			}
			if !validSort(sortBy) {
				return fmt.Errorf("unknown sort %q", sortBy)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var orders []models.Order
			if admin {
				if _, err := a.requireStaff(cmd.Context()); err != nil {
					return err
				}
				orders, err = a.shop.AdminListOrders(cmd.Context())
			} else {
				if _, err := a.requireSession(cmd.Context()); err != nil {
					return err
				}
				orders, err = a.shop.ListOrders(cmd.Context())
			}
			if err != nil {
				return explain(err)
			}

			orders = storefront.FilterAndSort(orders, status, storefront.OrderSort(sortBy))
			if len(orders) == 0 {
				fmt.Fprintln(a.out, "No orders found")
				return nil
			}
			return printOrders(a.out, orders, admin)
		},
	}

	cmd.Flags().StringVar(&status, "status", storefront.StatusAll, "Filter by status")
	cmd.Flags().StringVar(&sortBy, "sort", string(storefront.SortNewest), "Sort order: newest, oldest, amountHigh, amountLow")

	return cmd
}

func validSort(s string) bool {
	for _, known := range storefront.OrderSorts {
		if string(known) == s {
			return true
		}
	}
	return false
}

func printOrders(out io.Writer, orders []models.Order, admin bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if admin {
		fmt.Fprintln(w, "ID\tORDER\tCUSTOMER\tSTATUS\tTOTAL\tPLACED")
	} else {
		fmt.Fprintln(w, "ID\tORDER\tSTATUS\tTOTAL\tPLACED")
	}
	for i := range orders {
		o := &orders[i]
		placed := o.CreatedAt.Local().Format("2006-01-02 15:04")
		if admin {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", o.ID, orderLabel(o), o.UserEmail, o.Status, o.TotalAmount.Display(), placed)
		} else {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", o.ID, orderLabel(o), o.Status, o.TotalAmount.Display(), placed)
		}
	}
	return w.Flush()
}

func newOrderShowCmd(admin bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := positiveArg("order id", args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if admin {
				_, err = a.requireStaff(cmd.Context())
			} else {
				_, err = a.requireSession(cmd.Context())
			}
			if err != nil {
				return err
			}

			order, err := a.shop.GetOrder(cmd.Context(), id)
			if err != nil {
				return explain(err)
			}
			return printOrder(a.out, order)
		},
	}
}

func printOrder(out io.Writer, o *models.Order) error {
	fmt.Fprintf(out, "Order %s\n", orderLabel(o))
	fmt.Fprintf(out, "Placed:  %s\n", o.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "Status:  %s\n", o.Status)
	if o.PaymentMethod != "" {
		fmt.Fprintf(out, "Payment: %s", o.PaymentMethod)
		if o.PaymentStatus != "" {
			fmt.Fprintf(out, " (%s)", o.PaymentStatus)
		}
		fmt.Fprintln(out)
	}
	if o.UserEmail != "" {
		fmt.Fprintf(out, "Customer: %s\n", o.UserEmail)
	}
	if addr := o.ShippingAddress; addr != nil {
		fmt.Fprintf(out, "Ship to: %s, %s, %s, %s %s\n", addr.FullName, addr.Address, addr.City, addr.State, addr.ZipCode)
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tQTY\tPRICE\tTOTAL")
	for _, it := range o.Items {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", it.ProductName, it.Quantity, it.UnitPrice.Display(), it.LineTotal.Display())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Subtotal: %s\n", o.Subtotal().Display())
	if o.ShippingAmount != nil {
		fmt.Fprintf(out, "Shipping: %s\n", o.ShippingAmount.Display())
	}
	if o.TaxAmount != nil {
		fmt.Fprintf(out, "Tax:      %s\n", o.TaxAmount.Display())
	}
	fmt.Fprintf(out, "Total:    %s\n", o.TotalAmount.Display())
	return nil
}
