package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"agromart/apperr"
	"agromart/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var testNow = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

type memOrders struct {
	mu     sync.Mutex
	byID   map[primitive.ObjectID]*models.Order
	byRef  map[string]primitive.ObjectID
	seqNo  []primitive.ObjectID
	insert int

	insertErr        func(n int, o *models.Order) error
	beforeTransition func()
	cancelCalls      int
}

func newMemOrders() *memOrders {
	return &memOrders{
		byID:  make(map[primitive.ObjectID]*models.Order),
		byRef: make(map[string]primitive.ObjectID),
	}
}

func duplicateKeyErr(orderID string) error {
	return apperr.Wrap(apperr.KindConflict, mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key orderId " + orderID}},
	}, "order id already taken")
}

func (m *memOrders) Insert(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert++
	if m.insertErr != nil {
		if err := m.insertErr(m.insert, o); err != nil {
			return err
		}
	}
	if _, taken := m.byRef[o.OrderID]; taken {
		return duplicateKeyErr(o.OrderID)
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	cp := *o
	m.byID[o.ID] = &cp
	m.byRef[o.OrderID] = o.ID
	m.seqNo = append(m.seqNo, o.ID)
	return nil
}

func (m *memOrders) CancelPlacement(_ context.Context, placementID, reason string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCalls++
	var n int64
	for _, o := range m.byID {
		if o.PlacementID == placementID && !o.Status.Terminal() {
			o.Status = models.StatusCancelled
			o.CancelReason = reason
			o.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func inScope(o *models.Order, scope Scope) bool {
	if scope.Consumer != "" && o.Consumer != scope.Consumer {
		return false
	}
	if scope.Farmer != "" && o.Farmer != scope.Farmer {
		return false
	}
	if scope.Party != "" && o.Consumer != scope.Party && o.Farmer != scope.Party {
		return false
	}
	return true
}

func (m *memOrders) FindByRef(_ context.Context, ref string, scope Scope) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byRef[ref]
	if !ok {
		if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
			id, ok = oid, m.byID[oid] != nil
		}
	}
	if !ok || !inScope(m.byID[id], scope) {
		return models.Order{}, apperr.NotFound("order not found")
	}
	return *m.byID[id], nil
}

// Transition applies exactly the change it is handed.
func (m *memOrders) Transition(_ context.Context, id primitive.ObjectID, change models.StatusChange) (models.Order, error) {
	if m.beforeTransition != nil {
		m.beforeTransition()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.Status != change.From {
		return models.Order{}, apperr.Conflict("order status changed concurrently, reload and retry")
	}
	o.Status = change.To
	o.UpdatedAt = change.At
	if change.PaymentStatus != "" {
		o.PaymentStatus = change.PaymentStatus
	}
	return *o, nil
}

func (m *memOrders) List(_ context.Context, scope Scope, status models.OrderStatus) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for i := len(m.seqNo) - 1; i >= 0; i-- {
		o := m.byID[m.seqNo[i]]
		if inScope(o, scope) && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memOrders) get(ref string) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[m.byRef[ref]]
}

func (m *memOrders) all() []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, 0, len(m.seqNo))
	for _, id := range m.seqNo {
		out = append(out, *m.byID[id])
	}
	return out
}

type memCarts struct {
	mu        sync.Mutex
	carts     map[string][]models.CartItem
	removeErr error
	// beforeRemove runs ahead of RemoveProducts, outside the lock.
	beforeRemove func()
}

func newMemCarts() *memCarts {
	return &memCarts{carts: make(map[string][]models.CartItem)}
}

func (c *memCarts) set(user string, items ...models.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[user] = items
}

func (c *memCarts) Items(_ context.Context, user string) ([]models.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.carts[user]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return append([]models.CartItem{}, items...), nil
}

func (c *memCarts) RemoveProducts(_ context.Context, user string, productIDs []string) error {
	if c.beforeRemove != nil {
		c.beforeRemove()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removeErr != nil {
		return c.removeErr
	}
	drop := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	kept := []models.CartItem{}
	for _, it := range c.carts[user] {
		if !drop[it.ProductID] {
			kept = append(kept, it)
		}
	}
	c.carts[user] = kept
	return nil
}

type memUsers map[string]models.UserSummary

func (u memUsers) Summaries(_ context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	for _, id := range ids {
		if s, ok := u[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// memSeq counts per day. Starting values can be preset to force collisions.
type memSeq struct {
	mu   sync.Mutex
	days map[string]int64
}

func (s *memSeq) Next(_ context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.days == nil {
		s.days = make(map[string]int64)
	}
	s.days[day]++
	return s.days[day], nil
}

type sentEvent struct {
	user, event string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (n *recordingNotifier) Notify(user, event string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEvent{user, event})
}

// atomicRunner stands in for a transactional runner; it only reports Atomic.
type atomicRunner struct{}

func (atomicRunner) Atomic() bool { return true }

func (atomicRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc      *Service
	orders   *memOrders
	carts    *memCarts
	seq      *memSeq
	notifier *recordingNotifier
}

func newFixture() *fixture {
	f := &fixture{
		orders:   newMemOrders(),
		carts:    newMemCarts(),
		seq:      &memSeq{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(Deps{
		Orders:   f.orders,
		Carts:    f.carts,
		Users:    testUsers,
		Sequence: f.seq,
		Notifier: f.notifier,
	})
	f.svc.now = func() time.Time { return testNow }
	n := 0
	f.svc.newID = func() string {
		n++
		return fmt.Sprintf("placement-%d", n)
	}
	return f
}

var testUsers = memUsers{
	"c1": {ID: "c1", Name: "Asha", Email: "asha@example.com"},
	"f1": {ID: "f1", Name: "Green Acres"},
	"f2": {ID: "f2", Name: "Hill Farm"},
}

func line(product, farmer string, price float64, qty int) models.CartItem {
	return models.CartItem{ProductID: product, FarmerID: farmer, Name: product, Price: price, Unit: "kg", Quantity: qty}
}

func validRequest() PlaceRequest {
	return PlaceRequest{
		ShippingAddress: models.ShippingAddress{
			FullName: "Asha Rao",
			Phone:    "9999999999",
			Address:  "12 Market Road",
			City:     "Pune",
			PinCode:  "411001",
		},
		PaymentMethod:  "cod",
		DeliveryCharge: 20,
	}
}
