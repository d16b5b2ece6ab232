package orders

import (
	"context"
	"log/slog"
	"strings"

	"agromart/apperr"
	"agromart/metrics"
	"agromart/models"
)

// UpdateStatus moves one of farmerID's orders to status. orderRef is either
// the orderId or the hex _id.
func (s *Service) UpdateStatus(ctx context.Context, orderRef, farmerID, status string) (models.OrderView, error) {
	if farmerID == "" {
		return models.OrderView{}, apperr.Authentication("login required")
	}
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return models.OrderView{}, apperr.Validation("order id is required")
	}
	next, err := models.ParseOrderStatus(strings.TrimSpace(status))
	if err != nil {
		return models.OrderView{}, apperr.Validation("invalid status %q", status)
	}

	current, err := s.orders.FindByRef(ctx, orderRef, Scope{Farmer: farmerID})
	if err != nil {
		return models.OrderView{}, err
	}
	if !current.Status.CanTransition(next) {
		return models.OrderView{}, apperr.Validation("cannot move order from %s to %s", current.Status, next)
	}

	updated, err := s.orders.Transition(ctx, current.ID, current.Status.ChangeTo(next, s.now().UTC()))
	if err != nil {
		return models.OrderView{}, err
	}
	metrics.OrderTransitions.WithLabelValues(string(next)).Inc()
	slog.InfoContext(ctx, "order status changed",
		"orderId", updated.OrderID,
		"from", current.Status,
		"to", next,
	)

	view := s.populateOrBare(ctx, []models.Order{updated}, true, false)[0]
	s.notifier.Notify(updated.Consumer, EventOrderStatus, view)
	return view, nil
}
