// Package storefront is the data layer behind the catalog, cart, checkout,
// order history and admin views. Every call goes through the shared API
// client, so authorization and token-failure handling happen there.
package storefront

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ecomstore/storefront/internal/apiclient"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidPayment = errors.New("invalid payment details")
	ErrInvalidStatus  = errors.New("invalid order status")
)

// API is the subset of the HTTP client used by the services
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
	DoMultipart(ctx context.Context, method, path string, fields map[string]string, file *apiclient.FilePart, out any) error
}

// Service handles storefront operations
type Service struct {
	api       API
	logger    zerolog.Logger
	validator *validator.Validate
}

// NewService creates a new storefront service
func NewService(api API, logger zerolog.Logger) *Service {
	return &Service{
		api:       api,
		logger:    logger,
		validator: newValidator(),
	}
}

var _ API = (*apiclient.Client)(nil)
