package cart

import (
	"context"
	"strings"

	"agromart/apperr"
	"agromart/metrics"
	"agromart/models"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Add increments the line for item.ProductID by item.Quantity (default 1),
// appending a new line when the product is not in the cart yet.
func (s *Service) Add(ctx context.Context, userID string, item models.CartItem) ([]models.CartItem, error) {
	if userID == "" {
		return nil, apperr.Authentication("login required")
	}
	item.ProductID = strings.TrimSpace(item.ProductID)
	item.FarmerID = strings.TrimSpace(item.FarmerID)
	if item.ProductID == "" || item.FarmerID == "" {
		return nil, apperr.Validation("productId and farmerId are required")
	}
	if item.Price < 0 {
		return nil, apperr.Validation("price must not be negative")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	if err := s.store.Increment(ctx, userID, item); err != nil {
		return nil, err
	}
	metrics.CartMutations.WithLabelValues("add").Inc()
	return s.items(ctx, userID)
}

// UpdateQuantity sets the quantity of a line. Any quantity <= 0 removes it.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) ([]models.CartItem, error) {
	if userID == "" {
		return nil, apperr.Authentication("login required")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperr.Validation("productId is required")
	}

	var err error
	if quantity <= 0 {
		err = s.store.Remove(ctx, userID, productID)
	} else {
		err = s.store.SetQuantity(ctx, userID, productID, quantity)
	}
	if err != nil {
		return nil, err
	}
	metrics.CartMutations.WithLabelValues("update").Inc()
	return s.items(ctx, userID)
}

// Remove deletes a line. Removing a product that is not in the cart is not an error.
func (s *Service) Remove(ctx context.Context, userID, productID string) ([]models.CartItem, error) {
	if userID == "" {
		return nil, apperr.Authentication("login required")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperr.Validation("productId is required")
	}
	if err := s.store.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	metrics.CartMutations.WithLabelValues("remove").Inc()
	return s.items(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID string) ([]models.CartItem, error) {
	if userID == "" {
		return nil, apperr.Authentication("login required")
	}
	return s.items(ctx, userID)
}

// items never returns a nil slice.
func (s *Service) items(ctx context.Context, userID string) ([]models.CartItem, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}
