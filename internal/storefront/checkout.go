package storefront

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/models"
)

const (
	defaultAddressPath = "/orders/profile/default-address/"
	placeOrderPath     = "/orders/place-order/"
)

// PaymentMethod is the backend's payment method code
type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "COD"
	PaymentCard PaymentMethod = "CARD"
	PaymentUPI  PaymentMethod = "UPI"
)

// PaymentMethods lists the accepted methods in display order
var PaymentMethods = []PaymentMethod{PaymentCOD, PaymentCard, PaymentUPI}

// ParsePaymentMethod accepts any casing of a known method
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range PaymentMethods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidPayment, s)
}

// Label is the human name shown in selectors
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCOD:
		return "Cash on Delivery"
	case PaymentCard:
		return "Credit / Debit Card"
	case PaymentUPI:
		return "UPI"
	default:
		return string(m)
	}
}

const (
	codFee         models.Money = 500
	processingRate              = 0.02
)

// PaymentDetails are collected for CARD and UPI. They are checked locally
// and never sent to the backend.
type PaymentDetails struct {
	CardNumber string
	CardExpiry string
	CardCVV    string
	UPIID      string
}

type cardDetails struct {
	Number string `validate:"len=16,number"`
	Expiry string `validate:"mmyy"`
	CVV    string `validate:"min=3,max=4,number"`
}

type upiDetails struct {
	ID string `validate:"min=6,contains=@"`
}

// ShippingDetails is the place-order shipping payload
type ShippingDetails struct {
	FullName  string `json:"fullName" validate:"notblank"`
	Phone     string `json:"phone" validate:"notblank"`
	Address   string `json:"address" validate:"notblank"`
	City      string `json:"city" validate:"notblank"`
	State     string `json:"state" validate:"notblank"`
	ZipCode   string `json:"zipCode" validate:"notblank"`
	IsDefault bool   `json:"isDefault"`
}

// ShippingFromAddress prefills shipping details from a saved address
func ShippingFromAddress(a *models.Address) ShippingDetails {
	if a == nil {
		return ShippingDetails{}
	}
	return ShippingDetails{
		FullName:  a.FullName,
		Phone:     a.Phone,
		Address:   a.Address,
		City:      a.City,
		State:     a.State,
		ZipCode:   a.ZipCode,
		IsDefault: a.IsDefault,
	}
}

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("mmyy", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	return v
}

// Quote is the checkout price breakdown
type Quote struct {
	Subtotal models.Money
	Fee      models.Money
	Total    models.Money
}

// Quote computes the fee and total for a cart total and payment method.
// COD carries a flat fee, CARD and UPI a processing percentage.
func (s *Service) Quote(cartTotal models.Money, method PaymentMethod) Quote {
	var fee models.Money
	switch method {
	case PaymentCOD:
		fee = codFee
	case PaymentCard, PaymentUPI:
		fee = cartTotal.Percent(processingRate)
	}
	return Quote{Subtotal: cartTotal, Fee: fee, Total: cartTotal + fee}
}

// ValidatePayment checks the details required by method. COD needs none.
func (s *Service) ValidatePayment(method PaymentMethod, details PaymentDetails) error {
	var target any
	switch method {
	case PaymentCOD:
		return nil
	case PaymentCard:
		target = cardDetails{
			Number: strings.ReplaceAll(details.CardNumber, " ", ""),
			Expiry: strings.TrimSpace(details.CardExpiry),
			CVV:    strings.TrimSpace(details.CardCVV),
		}
	case PaymentUPI:
		target = upiDetails{ID: strings.TrimSpace(details.UPIID)}
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidPayment, method)
	}

	if err := s.validator.Struct(target); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayment, describeValidation(err))
	}
	return nil
}

// ValidateShipping checks that every shipping field is filled in
func (s *Service) ValidateShipping(details ShippingDetails) error {
	if err := s.validator.Struct(details); err != nil {
		return fmt.Errorf("invalid shipping details: %s", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return strings.Join(fields, ", ") + " invalid"
}

// CheckoutData is what the checkout view needs before the form is shown
type CheckoutData struct {
	Cart    *models.Cart
	Address *models.Address
}

// PrepareCheckout loads the cart and the saved default address. An empty
// cart fails with ErrEmptyCart; a missing address is not an error.
func (s *Service) PrepareCheckout(ctx context.Context) (*CheckoutData, error) {
	cart, err := s.GetCart(ctx)
	if err != nil {
		return nil, err
	}
	if cart.Empty() {
		return nil, ErrEmptyCart
	}

	data := &CheckoutData{Cart: cart}

	var address models.Address
	if err := s.api.Get(ctx, defaultAddressPath, &address); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) || ctx.Err() != nil {
			return nil, err
		}
		s.logger.Debug().Err(err).Msg("No default shipping address")
		return data, nil
	}
	if address != (models.Address{}) {
		data.Address = &address
	}
	return data, nil
}

// PlaceOrderParams is the checkout form submission
type PlaceOrderParams struct {
	Shipping  ShippingDetails
	Method    PaymentMethod
	Payment   PaymentDetails
	CartTotal models.Money
}

type placeOrderRequest struct {
	ShippingDetails ShippingDetails `json:"shipping_details"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	TotalAmount     models.Money    `json:"total_amount"`
}

type placeOrderResponse struct {
	OrderReference string `json:"order_reference"`
}

// PlaceOrder validates the form and submits the order. Payment is
// simulated: card and UPI details stay on this machine. Returns the
// backend's order reference, which may be empty.
func (s *Service) PlaceOrder(ctx context.Context, params PlaceOrderParams) (string, error) {
	if err := s.ValidateShipping(params.Shipping); err != nil {
		return "", err
	}
	if err := s.ValidatePayment(params.Method, params.Payment); err != nil {
		return "", err
	}

	quote := s.Quote(params.CartTotal, params.Method)
	req := placeOrderRequest{
		ShippingDetails: params.Shipping,
		PaymentMethod:   params.Method,
		TotalAmount:     quote.Total,
	}

	var resp placeOrderResponse
	if err := s.api.Post(ctx, placeOrderPath, req, &resp); err != nil {
		return "", fmt.Errorf("failed to place order: %w", err)
	}

	s.logger.Info().
		Str("order_reference", resp.OrderReference).
		Str("payment_method", string(params.Method)).
		Str("total", quote.Total.String()).
		Msg("Order placed")
	return resp.OrderReference, nil
}
