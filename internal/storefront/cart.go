package storefront

import (
	"context"
	"fmt"

	"github.com/ecomstore/storefront/internal/models"
)

const (
	cartPath      = "/orders/cart/"
	cartAddPath   = "/orders/cart/add/"
	cartItemsPath = "/orders/cart/items/"
)

// GetCart returns the current user's cart
func (s *Service) GetCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := s.api.Get(ctx, cartPath, &cart); err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

// AddToCart adds quantity units of a product
func (s *Service) AddToCart(ctx context.Context, productID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	body := map[string]int{"product_id": productID, "quantity": quantity}
	if err := s.api.Post(ctx, cartAddPath, body, nil); err != nil {
		return fmt.Errorf("failed to add product %d to cart: %w", productID, err)
	}

	s.logger.Debug().Int("product_id", productID).Int("quantity", quantity).Msg("Added to cart")
	return nil
}

// UpdateCartItem sets the quantity of a cart line
func (s *Service) UpdateCartItem(ctx context.Context, itemID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	body := map[string]int{"quantity": quantity}
	if err := s.api.Patch(ctx, cartItemPath(itemID), body, nil); err != nil {
		return fmt.Errorf("failed to update cart item %d: %w", itemID, err)
	}
	return nil
}

// RemoveCartItem deletes a cart line
func (s *Service) RemoveCartItem(ctx context.Context, itemID int) error {
	if err := s.api.Delete(ctx, cartItemPath(itemID)); err != nil {
		return fmt.Errorf("failed to remove cart item %d: %w", itemID, err)
	}
	return nil
}

func cartItemPath(itemID int) string {
	return fmt.Sprintf("%s%d/", cartItemsPath, itemID)
}
