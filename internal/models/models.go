package models

import (
	"time"
)

// UserProfile is the authenticated account as returned by the backend
type UserProfile struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}

// DisplayName returns the first name when known, else the username
func (u *UserProfile) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// TokenPair is the credential exchange result
type TokenPair struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh,omitempty"`
	User    *UserProfile `json:"user,omitempty"`
}

// Product represents a catalog item
type Product struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	CategoryName  string `json:"category_name"`
	Price         Money  `json:"price"`
	DiscountPrice *Money `json:"discount_price"`
	FinalPrice    Money  `json:"final_price"`
	Stock         int    `json:"stock"`
	Image         string `json:"image"`
	IsActive      bool   `json:"is_active"`
}

// Discounted reports whether the product sells below its list price
func (p *Product) Discounted() bool {
	return p.DiscountPrice != nil && *p.DiscountPrice < p.Price
}

// CartItem is one line in the shopping cart
type CartItem struct {
	ID          int    `json:"id"`
	Product     int    `json:"product"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
	LineTotal   Money  `json:"line_total"`
}

// Cart represents the current user's cart
type Cart struct {
	Items      []CartItem `json:"items"`
	TotalPrice Money      `json:"total_price"`
}

// Empty reports whether the cart has no lines
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// Address is a shipping address. JSON names match the backend's profile
// endpoint; the place-order payload uses ShippingDetails instead.
type Address struct {
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	IsDefault bool   `json:"is_default"`
}

// Order status values
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// OrderStatuses lists the valid order statuses in lifecycle order
var OrderStatuses = []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ValidOrderStatus reports whether status is a known order status
func ValidOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// OrderItem is one purchased line
type OrderItem struct {
	ID          int    `json:"id"`
	Product     int    `json:"product,omitempty"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
	LineTotal   Money  `json:"line_total"`
}

// Order represents a placed order
type Order struct {
	ID              int         `json:"id"`
	OrderNumber     string      `json:"order_number"`
	UserEmail       string      `json:"user_email,omitempty"`
	Status          string      `json:"status"`
	PaymentMethod   string      `json:"payment_method"`
	PaymentStatus   string      `json:"payment_status"`
	TotalAmount     Money       `json:"total_amount"`
	ItemsTotal      *Money      `json:"items_total,omitempty"`
	ShippingAmount  *Money      `json:"shipping_amount,omitempty"`
	TaxAmount       *Money      `json:"tax_amount,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	Items           []OrderItem `json:"items"`
	ShippingAddress *Address    `json:"shipping_address,omitempty"`
	IsActive        *bool       `json:"is_active,omitempty"`
}

// Subtotal returns the items total, falling back to the order total
func (o *Order) Subtotal() Money {
	if o.ItemsTotal != nil {
		return *o.ItemsTotal
	}
	return o.TotalAmount
}
