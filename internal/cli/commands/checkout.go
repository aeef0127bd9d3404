package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecomstore/storefront/internal/cli/prompt"
	"github.com/ecomstore/storefront/internal/cli/userconfig"
	"github.com/ecomstore/storefront/internal/models"
	"github.com/ecomstore/storefront/internal/storefront"
)

type checkoutOptions struct {
	shipping    storefront.ShippingDetails
	method      string
	payment     storefront.PaymentDetails
	saveAddress bool
	yes         bool
}

// NewCheckoutCmd creates the checkout command
func NewCheckoutCmd() *cobra.Command {
	var opts checkoutOptions

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for everything in the cart",
		Long: `Place an order for everything in the cart.

Shipping fields left empty are filled from your saved default address.
Payment is simulated: card and UPI details are checked locally and are
never sent to the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.shipping.FullName, "name", "", "Recipient full name")
	f.StringVar(&opts.shipping.Phone, "phone", "", "Contact phone")
	f.StringVar(&opts.shipping.Address, "address", "", "Street address")
	f.StringVar(&opts.shipping.City, "city", "", "City")
	f.StringVar(&opts.shipping.State, "state", "", "State")
	f.StringVar(&opts.shipping.ZipCode, "zip", "", "ZIP / postal code")
	f.StringVar(&opts.method, "method", "", "Payment method: COD, CARD or UPI")
	f.StringVar(&opts.payment.CardNumber, "card-number", "", "Card number (16 digits)")
	f.StringVar(&opts.payment.CardExpiry, "card-expiry", "", "Card expiry (MM/YY)")
	f.StringVar(&opts.payment.CardCVV, "card-cvv", "", "Card CVV")
	f.StringVar(&opts.payment.UPIID, "upi-id", "", "UPI ID (name@bank)")
	f.BoolVar(&opts.saveAddress, "save-address", false, "Save the shipping address as your default")
	f.BoolVarP(&opts.yes, "yes", "y", false, "Skip confirmation")

	return cmd
}

func runCheckout(cmd *cobra.Command, opts checkoutOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	data, err := a.shop.PrepareCheckout(ctx)
	if errors.Is(err, storefront.ErrEmptyCart) {
		return fmt.Errorf("your cart is empty. Add products with 'storefront cart add' first")
	}
	if err != nil {
		return explain(err)
	}

	shipping := mergeShipping(opts.shipping, storefront.ShippingFromAddress(data.Address))
	shipping.IsDefault = opts.saveAddress
	if err := a.shop.ValidateShipping(shipping); err != nil {
		return fmt.Errorf("%w (use --name, --phone, --address, --city, --state and --zip)", err)
	}

	uc, err := userconfig.Load()
	if err != nil {
		a.logger.Debug().Err(err).Msg("Ignoring unreadable user config")
		uc = &userconfig.UserConfig{}
	}

	method, err := chooseMethod(a, opts.method, uc.PaymentMethod, data.Cart.TotalPrice)
	if err != nil {
		return err
	}

	payment, err := collectPayment(method, opts.payment)
	if err != nil {
		return err
	}
	if err := a.shop.ValidatePayment(method, payment); err != nil {
		return err
	}

	quote := a.shop.Quote(data.Cart.TotalPrice, method)
	fmt.Fprintf(a.out, "Items:    %d\n", len(data.Cart.Items))
	fmt.Fprintf(a.out, "Ship to:  %s, %s, %s %s\n", shipping.FullName, shipping.City, shipping.State, shipping.ZipCode)
	fmt.Fprintf(a.out, "Payment:  %s\n", method.Label())
	fmt.Fprintf(a.out, "Subtotal: %s\n", quote.Subtotal.Display())
	fmt.Fprintf(a.out, "Fee:      %s\n", quote.Fee.Display())
	fmt.Fprintf(a.out, "Total:    %s\n", quote.Total.Display())

	if !opts.yes {
		if !prompt.Interactive() {
			return fmt.Errorf("confirmation required in non-interactive mode (use --yes)")
		}
		if !prompt.Confirm("Place order") {
			fmt.Fprintln(a.out, "Checkout cancelled")
			return nil
		}
	}

	ref, err := a.shop.PlaceOrder(ctx, storefront.PlaceOrderParams{
		Shipping:  shipping,
		Method:    method,
		Payment:   payment,
		CartTotal: data.Cart.TotalPrice,
	})
	if err != nil {
		return explain(err)
	}

	if string(method) != uc.PaymentMethod {
		if err := userconfig.Update(func(c *userconfig.UserConfig) { c.PaymentMethod = string(method) }); err != nil {
			fmt.Fprintf(a.errOut, "Warning: failed to save user config: %v\n", err)
		}
	}

	if ref == "" {
		ref = "N/A"
	}
	fmt.Fprintln(a.out, "✓ Order placed!")
	fmt.Fprintf(a.out, "  Reference: %s\n", ref)
	return nil
}

// chooseMethod resolves the payment method from the flag, a prompt, or
// the saved preference, in that order
func chooseMethod(a *app, flag, preferred string, total models.Money) (storefront.PaymentMethod, error) {
	if flag != "" {
		return storefront.ParsePaymentMethod(flag)
	}

	pref, _ := storefront.ParsePaymentMethod(preferred)
	if prompt.Interactive() {
		return prompt.SelectPaymentMethod(func(m storefront.PaymentMethod) storefront.Quote {
			return a.shop.Quote(total, m)
		}, pref)
	}
	if pref != "" {
		return pref, nil
	}
	return "", fmt.Errorf("payment method is required in non-interactive mode (use --method)")
}

// mergeShipping fills empty fields of given from saved
func mergeShipping(given, saved storefront.ShippingDetails) storefront.ShippingDetails {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return storefront.ShippingDetails{
		FullName: pick(given.FullName, saved.FullName),
		Phone:    pick(given.Phone, saved.Phone),
		Address:  pick(given.Address, saved.Address),
		City:     pick(given.City, saved.City),
		State:    pick(given.State, saved.State),
		ZipCode:  pick(given.ZipCode, saved.ZipCode),
	}
}

// collectPayment prompts for card or UPI fields the flags left empty
func collectPayment(method storefront.PaymentMethod, given storefront.PaymentDetails) (storefront.PaymentDetails, error) {
	if !prompt.Interactive() {
		return given, nil
	}

	var err error
	switch method {
	case storefront.PaymentCard:
		if given.CardNumber == "" {
			if given.CardNumber, err = prompt.Line("Card number", ""); err != nil {
				return given, err
			}
		}
		if given.CardExpiry == "" {
			if given.CardExpiry, err = prompt.Line("Expiry (MM/YY)", ""); err != nil {
				return given, err
			}
		}
		if given.CardCVV == "" {
			if given.CardCVV, err = prompt.Password("CVV"); err != nil {
				return given, err
			}
		}
	case storefront.PaymentUPI:
		if given.UPIID == "" {
			if given.UPIID, err = prompt.Line("UPI ID", ""); err != nil {
				return given, err
			}
		}
	}
	return given, nil
}
