package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/ecomstore/storefront/internal/models"
)

const productsPath = "/products/"

// ListProducts returns the public catalog. The backend may answer with a
// bare array or a paginated envelope; both are accepted.
func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, productsPath, &raw); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return decodeList[models.Product](raw)
}

// GetProduct returns one product by slug
func (s *Service) GetProduct(ctx context.Context, slug string) (*models.Product, error) {
	if slug == "" {
		return nil, fmt.Errorf("product slug is required")
	}

	var product models.Product
	if err := s.api.Get(ctx, productsPath+url.PathEscape(slug)+"/", &product); err != nil {
		return nil, fmt.Errorf("failed to get product %q: %w", slug, err)
	}
	return &product, nil
}

// decodeList decodes either `[...]` or `{"results": [...]}`
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	list := raw
	if results := gjson.GetBytes(raw, "results"); results.Exists() && results.IsArray() {
		list = json.RawMessage(results.Raw)
	}
	if len(list) == 0 || string(list) == "null" {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, fmt.Errorf("unexpected list response: %w", err)
	}
	return items, nil
}
