package orders

import (
	"context"
	"strings"

	"agromart/apperr"
	"agromart/models"

	"github.com/shopspring/decimal"
)

// UserOrders lists a consumer's orders newest first with the farmer populated
// and per-order unit count and grand total.
func (s *Service) UserOrders(ctx context.Context, consumerID string) ([]models.OrderView, error) {
	if consumerID == "" {
		return nil, apperr.Authentication("login required")
	}
	orders, err := s.orders.List(ctx, Scope{Consumer: consumerID}, "")
	if err != nil {
		return nil, err
	}
	views, err := s.populate(ctx, orders, false, true)
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i].TotalItems = views[i].Order.TotalItems()
		views[i].GrandTotal = decimal.NewFromFloat(views[i].TotalAmount).
			Add(decimal.NewFromFloat(views[i].DeliveryCharge)).
			Round(2).
			InexactFloat64()
	}
	return views, nil
}

// FarmerOrders lists orders addressed to farmerID, optionally by status.
func (s *Service) FarmerOrders(ctx context.Context, farmerID, status string) ([]models.OrderView, error) {
	if farmerID == "" {
		return nil, apperr.Authentication("login required")
	}
	var st models.OrderStatus
	if status = strings.TrimSpace(status); status != "" {
		var err error
		if st, err = models.ParseOrderStatus(status); err != nil {
			return nil, apperr.Validation("invalid status %q", status)
		}
	}
	orders, err := s.orders.List(ctx, Scope{Farmer: farmerID}, st)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, orders, true, false)
}

// ForParticipant loads an order only if userID is its consumer or farmer.
// Anyone else gets NotFound.
func (s *Service) ForParticipant(ctx context.Context, orderRef, userID string) (models.OrderView, error) {
	if userID == "" {
		return models.OrderView{}, apperr.Authentication("login required")
	}
	order, err := s.orders.FindByRef(ctx, strings.TrimSpace(orderRef), Scope{Party: userID})
	if err != nil {
		return models.OrderView{}, err
	}
	views, err := s.populate(ctx, []models.Order{order}, true, true)
	if err != nil {
		return models.OrderView{}, err
	}
	return views[0], nil
}
