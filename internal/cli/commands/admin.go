package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ecomstore/storefront/internal/cli/prompt"
	"github.com/ecomstore/storefront/internal/models"
	"github.com/ecomstore/storefront/internal/storefront"
)

// NewAdminCmd creates the admin command group. Every subcommand requires
// a staff account.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Store administration (staff only)",
	}

	orders := &cobra.Command{
		Use:   "orders",
		Short: "Manage customer orders",
	}
	orders.AddCommand(newOrdersListCmd(true))
	orders.AddCommand(newOrderShowCmd(true))
	orders.AddCommand(newSetStatusCmd())

	products := &cobra.Command{
		Use:   "products",
		Short: "Manage the catalog",
	}
	products.AddCommand(newAdminProductsListCmd())
	products.AddCommand(newProductCreateCmd())
	products.AddCommand(newProductUpdateCmd())

	cmd.AddCommand(orders, products)
	return cmd
}

// withStaff runs fn with an app whose session resolved to a staff user
func withStaff(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireStaff(cmd.Context()); err != nil {
		return err
	}
	return fn(a)
}

func newSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <order-id> [status]",
		Short: "Change an order's status",
		Long: fmt.Sprintf(`Change an order's status.

Valid statuses: %s. When the status is omitted in a terminal you
are asked to pick one.`, strings.Join(models.OrderStatuses, ", ")),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := positiveArg("order id", args[0])
			if err != nil {
				return err
			}

			return withStaff(cmd, func(a *app) error {
				var status string
				if len(args) == 2 {
					status = strings.ToLower(args[1])
				} else {
					if !prompt.Interactive() {
						return fmt.Errorf("status is required in non-interactive mode")
					}
					order, err := a.shop.GetOrder(cmd.Context(), id)
					if err != nil {
						return explain(err)
					}
					if status, err = prompt.SelectOrderStatus(order.Status); err != nil {
						return err
					}
				}

				if err := a.shop.UpdateOrderStatus(cmd.Context(), id, status); err != nil {
					return explain(err)
				}
				fmt.Fprintf(a.out, "✓ Order %d is now %s\n", id, status)
				return nil
			})
		},
	}
}

func newAdminProductsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List products including inactive ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStaff(cmd, func(a *app) error {
				products, err := a.shop.AdminListProducts(cmd.Context())
				if err != nil {
					return explain(err)
				}

				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSLUG\tNAME\tPRICE\tSTOCK\tACTIVE")
				for _, p := range products {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%t\n", p.ID, p.Slug, p.Name, p.Price.Display(), p.Stock, p.IsActive)
				}
				return w.Flush()
			})
		},
	}
}

type productFlags struct {
	name        string
	slug        string
	description string
	price       string
	stock       int
	active      bool
	image       string
}

func (f *productFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "Product name")
	fl.StringVar(&f.slug, "slug", "", "URL slug")
	fl.StringVar(&f.description, "description", "", "Description")
	fl.StringVar(&f.price, "price", "", "Price, e.g. 1299.00")
	fl.IntVar(&f.stock, "stock", 0, "Units in stock")
	fl.BoolVar(&f.active, "active", true, "Whether the product is listed")
	fl.StringVar(&f.image, "image", "", "Path to an image file to upload")
}

// apply overlays the flags the user actually set onto form
func (f *productFlags) apply(cmd *cobra.Command, form *storefront.ProductForm) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		form.Name = f.name
	}
	if changed("slug") {
		form.Slug = f.slug
	}
	if changed("description") {
		form.Description = f.description
	}
	if changed("price") {
		price, err := models.ParseMoney(f.price)
		if err != nil {
			return err
		}
		if price < 0 {
			return fmt.Errorf("price cannot be negative")
		}
		form.Price = price
	}
	if changed("stock") {
		if f.stock < 0 {
			return fmt.Errorf("stock cannot be negative")
		}
		form.Stock = f.stock
	}
	if changed("active") {
		form.IsActive = f.active
	}
	return nil
}

// openImage returns the upload for --image and a function closing it
func (f *productFlags) openImage() (*storefront.ProductImage, func(), error) {
	if f.image == "" {
		return nil, func() {}, nil
	}
	file, err := os.Open(f.image)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}
	return &storefront.ProductImage{FileName: filepath.Base(f.image), Content: file}, func() { file.Close() }, nil
}

func newProductCreateCmd() *cobra.Command {
	var flags productFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			form := storefront.ProductForm{IsActive: flags.active}
			if err := flags.apply(cmd, &form); err != nil {
				return err
			}

			image, closeImage, err := flags.openImage()
			if err != nil {
				return err
			}
			defer closeImage()

			return withStaff(cmd, func(a *app) error {
				created, err := a.shop.CreateProduct(cmd.Context(), form, image)
				if err != nil {
					return explain(err)
				}
				fmt.Fprintf(a.out, "✓ Product created: %s (id %d)\n", created.Slug, created.ID)
				return nil
			})
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func newProductUpdateCmd() *cobra.Command {
	var flags productFlags

	cmd := &cobra.Command{
		Use:   "update <slug>",
		Short: "Edit a product; only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]

			image, closeImage, err := flags.openImage()
			if err != nil {
				return err
			}
			defer closeImage()

			return withStaff(cmd, func(a *app) error {
				current, err := a.shop.GetProduct(cmd.Context(), slug)
				if err != nil {
					return explain(err)
				}

				form := storefront.ProductForm{
					Name:        current.Name,
					Slug:        current.Slug,
					Description: current.Description,
					Price:       current.Price,
					Stock:       current.Stock,
					IsActive:    current.IsActive,
				}
				if err := flags.apply(cmd, &form); err != nil {
					return err
				}

				updated, err := a.shop.UpdateProduct(cmd.Context(), slug, form, image)
				if err != nil {
					return explain(err)
				}
				fmt.Fprintf(a.out, "✓ Product updated: %s\n", updated.Slug)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}
