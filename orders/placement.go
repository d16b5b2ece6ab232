package orders

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"agromart/apperr"
	"agromart/metrics"
	"agromart/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	checkoutLockTTL      = 10 * time.Second
	maxPlacementAttempts = 3
	compensationTimeout  = 5 * time.Second

	CancelReasonPlacementFailed = "placement_failed"
)

type PlaceRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	DeliveryCharge  float64                `json:"deliveryCharge"`
}

type farmerGroup struct {
	farmer string
	items  []models.CartItem
}

// groupByFarmer partitions cart lines by farmer, keeping the order in which
// each farmer first appears.
func groupByFarmer(cart []models.CartItem) ([]farmerGroup, error) {
	index := make(map[string]int)
	var groups []farmerGroup
	for _, it := range cart {
		if it.Quantity <= 0 {
			continue
		}
		if it.FarmerID == "" {
			return nil, apperr.Validation("cart item %s has no farmer", it.ProductID)
		}
		i, ok := index[it.FarmerID]
		if !ok {
			i = len(groups)
			index[it.FarmerID] = i
			groups = append(groups, farmerGroup{farmer: it.FarmerID})
		}
		groups[i].items = append(groups[i].items, it)
	}
	return groups, nil
}

// subtotal is the sum of price*quantity rounded to cents.
func subtotal(items []models.CartItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Round(2).InexactFloat64()
}

func snapshot(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Unit:      it.Unit,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	return out
}

func validatePlaceRequest(req *PlaceRequest) (models.PaymentMethod, error) {
	addr := &req.ShippingAddress
	for _, f := range []*string{&addr.FullName, &addr.Phone, &addr.Address, &addr.Area, &addr.City, &addr.PinCode} {
		*f = strings.TrimSpace(*f)
	}
	if missing := addr.Missing(); len(missing) > 0 {
		return "", apperr.Validation("shipping address is missing %s", strings.Join(missing, ", "))
	}
	method, err := models.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	if err != nil {
		return "", apperr.Validation("paymentMethod must be cod or online")
	}
	if req.DeliveryCharge < 0 {
		return "", apperr.Validation("deliveryCharge must not be negative")
	}
	return method, nil
}

// Place converts the consumer's cart into one pending order per farmer and
// removes the checked-out lines. Either all orders are live and the cart is empty, or no
// order is live and the cart is untouched.
func (s *Service) Place(ctx context.Context, consumerID string, req PlaceRequest) ([]models.OrderView, error) {
	if consumerID == "" {
		return nil, apperr.Authentication("login required")
	}

	release, ok, err := s.locks.Acquire(ctx, "checkout:"+consumerID, checkoutLockTTL)
	if err != nil {
		return nil, apperr.Upstream(err, "checkout lock unavailable")
	}
	if !ok {
		return nil, apperr.Conflict("a checkout is already in progress")
	}
	defer release()

	cart, err := s.carts.Items(ctx, consumerID)
	if err != nil {
		return nil, err
	}
	groups, err := groupByFarmer(cart)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, apperr.Validation("cart is empty")
	}
	method, err := validatePlaceRequest(&req)
	if err != nil {
		return nil, err
	}
	// only the lines read here leave the cart; a line added meanwhile stays
	checkedOut := make([]string, 0, len(cart))
	for _, it := range cart {
		checkedOut = append(checkedOut, it.ProductID)
	}

	var placed []models.Order
	for attempt := 1; ; attempt++ {
		placed, err = s.placeOnce(ctx, consumerID, groups, checkedOut, req, method)
		if err == nil {
			break
		}
		if !apperr.IsDuplicateKey(err) {
			metrics.PlacementFailures.WithLabelValues(apperr.KindOf(err).String()).Inc()
			return nil, err
		}
		if attempt == maxPlacementAttempts {
			metrics.PlacementFailures.WithLabelValues("duplicate_order_id").Inc()
			return nil, apperr.Wrap(apperr.KindConflict, err, "could not allocate an order number, please retry")
		}
		slog.WarnContext(ctx, "order id collision, retrying placement", "consumer", consumerID, "attempt", attempt)
	}

	metrics.OrdersPlaced.WithLabelValues(string(method)).Add(float64(len(placed)))
	views := s.populateOrBare(ctx, placed, true, true)
	for _, v := range views {
		s.notifier.Notify(v.Order.Farmer, EventOrderPlaced, v)
	}
	slog.InfoContext(ctx, "orders placed",
		"consumer", consumerID,
		"placementId", placed[0].PlacementID,
		"count", len(placed),
	)
	return views, nil
}

// placeOnce draws fresh order numbers, then writes every order and removes the
// checked-out lines from the cart as one unit. Without a transactional runner, a failure cancels whatever
// was already inserted.
func (s *Service) placeOnce(ctx context.Context, consumerID string, groups []farmerGroup, checkedOut []string, req PlaceRequest, method models.PaymentMethod) ([]models.Order, error) {
	now := s.now().UTC()
	day := orderDay(now)
	placementID := s.newID()

	orders := make([]models.Order, 0, len(groups))
	for _, g := range groups {
		seq, err := s.seq.Next(ctx, day)
		if err != nil {
			return nil, apperr.Upstream(err, "order number unavailable")
		}
		orders = append(orders, models.Order{
			ID:              primitive.NewObjectID(),
			OrderID:         FormatOrderID(day, seq),
			PlacementID:     placementID,
			Consumer:        consumerID,
			Farmer:          g.farmer,
			Items:           snapshot(g.items),
			TotalAmount:     subtotal(g.items),
			DeliveryCharge:  req.DeliveryCharge,
			ShippingAddress: req.ShippingAddress,
			Status:          models.StatusPending,
			PaymentStatus:   models.PaymentPending,
			PaymentMethod:   method,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	inserted := 0
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		inserted = 0
		for i := range orders {
			if err := s.orders.Insert(ctx, &orders[i]); err != nil {
				return err
			}
			inserted++
		}
		return s.carts.RemoveProducts(ctx, consumerID, checkedOut)
	})
	if err != nil {
		if !s.tx.Atomic() && inserted > 0 {
			s.compensate(ctx, placementID, err)
		}
		return nil, err
	}
	return orders, nil
}

func (s *Service) compensate(ctx context.Context, placementID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	n, err := s.orders.CancelPlacement(ctx, placementID, CancelReasonPlacementFailed, s.now().UTC())
	if err != nil {
		slog.ErrorContext(ctx, "compensation failed, orders left live",
			"placementId", placementID, "cause", cause, "error", err)
		return
	}
	slog.WarnContext(ctx, "placement rolled back", "placementId", placementID, "cancelled", n, "cause", cause)
}
