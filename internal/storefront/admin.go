package storefront

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/models"
)

// AdminListOrders returns every order. The backend scopes /orders/ by
// the caller, so this is ListOrders under a staff token.
func (s *Service) AdminListOrders(ctx context.Context) ([]models.Order, error) {
	return s.ListOrders(ctx)
}

// UpdateOrderStatus moves an order to a new status
func (s *Service) UpdateOrderStatus(ctx context.Context, id int, status string) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	body := map[string]string{"status": status}
	if err := s.api.Post(ctx, orderPath(id)+"update_status/", body, nil); err != nil {
		return fmt.Errorf("failed to update status of order %d: %w", id, err)
	}

	s.logger.Info().Int("order_id", id).Str("status", status).Msg("Order status updated")
	return nil
}

// UpdateOrder replaces an order record
func (s *Service) UpdateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.Status != "" && !models.ValidOrderStatus(order.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, order.Status)
	}

	var updated models.Order
	if err := s.api.Put(ctx, orderPath(order.ID), order, &updated); err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", order.ID, err)
	}
	return &updated, nil
}

// AdminListProducts returns the catalog including inactive products
func (s *Service) AdminListProducts(ctx context.Context) ([]models.Product, error) {
	return s.ListProducts(ctx)
}

// ProductForm is the admin product editor payload
type ProductForm struct {
	Name        string
	Slug        string
	Description string
	Price       models.Money
	Stock       int
	IsActive    bool
}

func (f ProductForm) fields() map[string]string {
	return map[string]string{
		"name":        f.Name,
		"slug":        f.Slug,
		"description": f.Description,
		"price":       f.Price.String(),
		"stock":       strconv.Itoa(f.Stock),
		"is_active":   strconv.FormatBool(f.IsActive),
	}
}

// ProductImage is an optional image upload
type ProductImage struct {
	FileName string
	Content  io.Reader
}

func (img *ProductImage) part() *apiclient.FilePart {
	if img == nil {
		return nil
	}
	return &apiclient.FilePart{Field: "image", FileName: img.FileName, Content: img.Content}
}

// CreateProduct adds a product to the catalog
func (s *Service) CreateProduct(ctx context.Context, form ProductForm, image *ProductImage) (*models.Product, error) {
	if form.Name == "" {
		return nil, fmt.Errorf("product name is required")
	}

	var created models.Product
	if err := s.api.DoMultipart(ctx, http.MethodPost, "/", form.fields(), image.part(), &created); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().Str("slug", created.Slug).Msg("Product created")
	return &created, nil
}

// UpdateProduct edits the product identified by slug
func (s *Service) UpdateProduct(ctx context.Context, slug string, form ProductForm, image *ProductImage) (*models.Product, error) {
	if slug == "" {
		return nil, fmt.Errorf("product slug is required")
	}

	var updated models.Product
	path := "/" + url.PathEscape(slug) + "/"
	if err := s.api.DoMultipart(ctx, http.MethodPatch, path, form.fields(), image.part(), &updated); err != nil {
		return nil, fmt.Errorf("failed to update product %q: %w", slug, err)
	}

	s.logger.Info().Str("slug", slug).Msg("Product updated")
	return &updated, nil
}
