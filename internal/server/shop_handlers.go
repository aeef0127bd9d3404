package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/models"
	"github.com/ecomstore/storefront/internal/storefront"
)

const featuredCount = 4

func (s *Server) home(c *gin.Context) {
	products, err := s.shop.ListProducts(c.Request.Context())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load featured products")
		s.expireSession(err)
	}
	if len(products) > featuredCount {
		products = products[:featuredCount]
	}
	s.render(c, http.StatusOK, "home.html", "Home", gin.H{"Featured": products})
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.shop.ListProducts(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.render(c, http.StatusOK, "products.html", "Products", gin.H{"Products": products})
}

func (s *Server) showProduct(c *gin.Context) {
	product, err := s.shop.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.render(c, http.StatusOK, "product.html", product.Name, gin.H{"Product": product})
}

// AddToCartForm represents an add-to-cart submission
type AddToCartForm struct {
	ProductID int `form:"product_id" binding:"required,min=1"`
	Quantity  int `form:"quantity"`
}

func (s *Server) addToCart(c *gin.Context) {
	var form AddToCartForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, s.session.Snapshot(), http.StatusBadRequest, "Invalid product")
		return
	}
	if form.Quantity < 1 {
		form.Quantity = 1
	}

	if err := s.shop.AddToCart(c.Request.Context(), form.ProductID, form.Quantity); err != nil {
		s.handleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/cart")
}

func (s *Server) showCart(c *gin.Context) {
	cart, err := s.shop.GetCart(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.render(c, http.StatusOK, "cart.html", "Cart", gin.H{"Cart": cart})
}

func (s *Server) updateCartItem(c *gin.Context) {
	id, ok := s.intParam(c, "id")
	if !ok {
		return
	}
	quantity, err := strconv.Atoi(c.PostForm("quantity"))
	if err != nil || quantity < 1 {
		renderError(c, s.session.Snapshot(), http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	if err := s.shop.UpdateCartItem(c.Request.Context(), id, quantity); err != nil {
		s.handleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/cart")
}

func (s *Server) removeCartItem(c *gin.Context) {
	id, ok := s.intParam(c, "id")
	if !ok {
		return
	}
	if err := s.shop.RemoveCartItem(c.Request.Context(), id); err != nil {
		s.handleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/cart")
}

// CheckoutForm represents the checkout submission
type CheckoutForm struct {
	FullName      string `form:"full_name"`
	Phone         string `form:"phone"`
	Address       string `form:"address"`
	City          string `form:"city"`
	State         string `form:"state"`
	ZipCode       string `form:"zip_code"`
	IsDefault     bool   `form:"is_default"`
	PaymentMethod string `form:"payment_method"`
	CardNumber    string `form:"card_number"`
	CardExpiry    string `form:"card_expiry"`
	CardCVV       string `form:"card_cvv"`
	UPIID         string `form:"upi_id"`
}

func (f CheckoutForm) shipping() storefront.ShippingDetails {
	return storefront.ShippingDetails{
		FullName:  f.FullName,
		Phone:     f.Phone,
		Address:   f.Address,
		City:      f.City,
		State:     f.State,
		ZipCode:   f.ZipCode,
		IsDefault: f.IsDefault,
	}
}

type methodQuote struct {
	Method storefront.PaymentMethod
	Fee    models.Money
	Total  models.Money
}

func (s *Server) quotes(total models.Money) []methodQuote {
	out := make([]methodQuote, 0, len(storefront.PaymentMethods))
	for _, m := range storefront.PaymentMethods {
		q := s.shop.Quote(total, m)
		out = append(out, methodQuote{Method: m, Fee: q.Fee, Total: q.Total})
	}
	return out
}

func (s *Server) checkoutPage(c *gin.Context) {
	data, err := s.shop.PrepareCheckout(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	s.render(c, http.StatusOK, "checkout.html", "Checkout", gin.H{
		"CartTotal": data.Cart.TotalPrice,
		"Shipping":  storefront.ShippingFromAddress(data.Address),
		"Quotes":    s.quotes(data.Cart.TotalPrice),
		"Method":    storefront.PaymentCOD,
	})
}

func (s *Server) placeOrder(c *gin.Context) {
	var form CheckoutForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, s.session.Snapshot(), http.StatusBadRequest, "Invalid checkout form")
		return
	}

	ctx := c.Request.Context()

	// the total is recomputed from the backend cart, not taken from the form
	cart, err := s.shop.GetCart(ctx)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if cart.Empty() {
		s.handleError(c, storefront.ErrEmptyCart)
		return
	}

	rerender := func(status int, extra gin.H) {
		data := gin.H{
			"CartTotal": cart.TotalPrice,
			"Shipping":  form.shipping(),
			"Quotes":    s.quotes(cart.TotalPrice),
			"Method":    storefront.PaymentMethod(form.PaymentMethod),
		}
		for k, v := range extra {
			data[k] = v
		}
		s.render(c, status, "checkout.html", "Checkout", data)
	}

	method, err := storefront.ParsePaymentMethod(form.PaymentMethod)
	if err != nil {
		rerender(http.StatusBadRequest, gin.H{"Error": "Choose a payment method"})
		return
	}

	params := storefront.PlaceOrderParams{
		Shipping: form.shipping(),
		Method:   method,
		Payment: storefront.PaymentDetails{
			CardNumber: form.CardNumber,
			CardExpiry: form.CardExpiry,
			CardCVV:    form.CardCVV,
			UPIID:      form.UPIID,
		},
		CartTotal: cart.TotalPrice,
	}

	if err := s.shop.ValidateShipping(params.Shipping); err != nil {
		rerender(http.StatusBadRequest, gin.H{"Error": "Please fill in every shipping field"})
		return
	}
	if err := s.shop.ValidatePayment(method, params.Payment); err != nil {
		rerender(http.StatusBadRequest, gin.H{"Error": err.Error()})
		return
	}

	reference, err := s.shop.PlaceOrder(ctx, params)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			message := apiErr.Detail()
			if message == "" {
				message = "The order could not be completed"
			}
			rerender(http.StatusBadRequest, gin.H{"Error": message, "FieldErrors": apiErr.FieldErrors()})
			return
		}
		s.handleError(c, err)
		return
	}

	if reference == "" {
		reference = "N/A"
	}
	s.render(c, http.StatusOK, "order_placed.html", "Order placed", gin.H{
		"Reference": reference,
		"Total":     s.shop.Quote(cart.TotalPrice, method).Total,
	})
}

func (s *Server) intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		renderError(c, s.session.Snapshot(), http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}
