package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// statusRank orders the forward path; cancelled sits outside it.
var statusRank = map[OrderStatus]int{
	StatusPending:        0,
	StatusConfirmed:      1,
	StatusPreparing:      2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := statusRank[st]; ok || st == StatusCancelled {
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether s may move to next. Terminal states are
// final; otherwise the order may move forward (skipping steps) or be cancelled.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	return ok && to > from
}

// StatusChange is one lifecycle step as a store applies it. An empty
// PaymentStatus leaves the payment status untouched.
type StatusChange struct {
	From          OrderStatus
	To            OrderStatus
	PaymentStatus PaymentStatus
	At            time.Time
}

// ChangeTo builds the step from s to next. Delivering an order settles it,
// whatever the payment method.
func (s OrderStatus) ChangeTo(next OrderStatus, at time.Time) StatusChange {
	c := StatusChange{From: s, To: next, At: at}
	if next == StatusDelivered {
		c.PaymentStatus = PaymentPaid
	}
	return c
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// ParsePaymentMethod defaults to cash on delivery.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case "", PaymentCOD:
		return PaymentCOD, nil
	case PaymentOnline:
		return PaymentOnline, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

type ShippingAddress struct {
	FullName string `json:"fullName" bson:"fullName"`
	Phone    string `json:"phone" bson:"phone"`
	Address  string `json:"address" bson:"address"`
	Area     string `json:"area,omitempty" bson:"area,omitempty"`
	City     string `json:"city" bson:"city"`
	PinCode  string `json:"pin_code" bson:"pin_code"`
}

// Missing lists the required fields that are blank.
func (a ShippingAddress) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"fullName", a.FullName},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"pin_code", a.PinCode},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// OrderItem is an immutable snapshot of a cart line.
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Unit      string  `json:"unit,omitempty" bson:"unit,omitempty"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
}

// Order belongs to exactly one farmer. Orders created by the same checkout
// share PlacementID.
type Order struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id"`
	OrderID         string             `json:"orderId" bson:"orderId"`
	PlacementID     string             `json:"placementId" bson:"placementId"`
	Consumer        string             `json:"consumer" bson:"consumer"`
	Farmer          string             `json:"farmer" bson:"farmer"`
	Items           []OrderItem        `json:"items" bson:"items"`
	TotalAmount     float64            `json:"totalAmount" bson:"totalAmount"`
	DeliveryCharge  float64            `json:"deliveryCharge" bson:"deliveryCharge"`
	ShippingAddress ShippingAddress    `json:"shippingAddress" bson:"shippingAddress"`
	Status          OrderStatus        `json:"status" bson:"status"`
	PaymentStatus   PaymentStatus      `json:"paymentStatus" bson:"paymentStatus"`
	PaymentMethod   PaymentMethod      `json:"paymentMethod" bson:"paymentMethod"`
	CancelReason    string             `json:"cancelReason,omitempty" bson:"cancelReason,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// TotalItems is the number of units across all lines.
func (o Order) TotalItems() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// OrderView is an order with its user references populated.
type OrderView struct {
	Order
	Consumer   *UserSummary `json:"consumer"`
	Farmer     *UserSummary `json:"farmer"`
	TotalItems int          `json:"totalItems,omitempty"`
	GrandTotal float64      `json:"grandTotal,omitempty"`
}
