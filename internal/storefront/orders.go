package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/ecomstore/storefront/internal/models"
)

const ordersPath = "/orders/"

// OrderSort is an order history sort option
type OrderSort string

const (
	SortNewest     OrderSort = "newest"
	SortOldest     OrderSort = "oldest"
	SortAmountHigh OrderSort = "amountHigh"
	SortAmountLow  OrderSort = "amountLow"
)

// OrderSorts lists the sort options
var OrderSorts = []OrderSort{SortNewest, SortOldest, SortAmountHigh, SortAmountLow}

// StatusAll disables status filtering
const StatusAll = "all"

// ListOrders returns the current user's orders. Staff accounts receive
// every order from the same endpoint.
func (s *Service) ListOrders(ctx context.Context) ([]models.Order, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, ordersPath, &raw); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return decodeList[models.Order](raw)
}

// GetOrder returns one order
func (s *Service) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	var order models.Order
	if err := s.api.Get(ctx, orderPath(id), &order); err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return &order, nil
}

// FilterAndSort returns a new slice with orders matching status (or all
// when status is empty or "all"), ordered by sort. Unknown sorts fall
// back to newest first. The input is left untouched.
func FilterAndSort(orders []models.Order, status string, sort OrderSort) []models.Order {
	status = strings.ToLower(strings.TrimSpace(status))

	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && status != StatusAll && strings.ToLower(o.Status) != status {
			continue
		}
		out = append(out, o)
	}

	slices.SortStableFunc(out, func(a, b models.Order) int {
		switch sort {
		case SortOldest:
			return a.CreatedAt.Compare(b.CreatedAt)
		case SortAmountHigh:
			return compareMoney(b.TotalAmount, a.TotalAmount)
		case SortAmountLow:
			return compareMoney(a.TotalAmount, b.TotalAmount)
		default:
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	})
	return out
}

func compareMoney(a, b models.Money) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderPath(id int) string {
	return fmt.Sprintf("%s%d/", ordersPath, id)
}
