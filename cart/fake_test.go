package cart

import (
	"context"
	"sync"

	"agromart/apperr"
	"agromart/models"
)

// memStore is an in-memory Store keyed by user id.
type memStore struct {
	mu    sync.Mutex
	carts map[string][]models.CartItem
}

func newMemStore(users ...string) *memStore {
	s := &memStore{carts: make(map[string][]models.CartItem)}
	for _, u := range users {
		s.carts[u] = []models.CartItem{}
	}
	return s
}

func (s *memStore) Items(_ context.Context, userID string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return append([]models.CartItem(nil), items...), nil
}

func (s *memStore) Increment(_ context.Context, userID string, item models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[userID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			return nil
		}
	}
	s.carts[userID] = append(items, item)
	return nil
}

func (s *memStore) SetQuantity(_ context.Context, userID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[userID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = quantity
			return nil
		}
	}
	s.carts[userID] = append(items, models.CartItem{ProductID: productID, Quantity: quantity})
	return nil
}

func (s *memStore) Remove(_ context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[userID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	kept := items[:0]
	for _, it := range items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	s.carts[userID] = kept
	return nil
}

func (s *memStore) RemoveProducts(_ context.Context, userID string, productIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[userID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	drop := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	kept := []models.CartItem{}
	for _, it := range items {
		if !drop[it.ProductID] {
			kept = append(kept, it)
		}
	}
	s.carts[userID] = kept
	return nil
}
