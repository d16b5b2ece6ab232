package orders

import (
	"context"
	"time"

	"agromart/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Scope narrows order lookups to the orders a user may see. Party matches
// either side of the order.
type Scope struct {
	Consumer string
	Farmer   string
	Party    string
}

// Store persists orders. Orders are never deleted.
type Store interface {
	Insert(ctx context.Context, order *models.Order) error
	// CancelPlacement marks every non-terminal order of a checkout cancelled.
	CancelPlacement(ctx context.Context, placementID, reason string, at time.Time) (int64, error)
	// FindByRef resolves a human orderId or a hex _id inside scope.
	FindByRef(ctx context.Context, ref string, scope Scope) (models.Order, error)
	// Transition applies change only if the order is still in change.From.
	// A lost race is a Conflict.
	Transition(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (models.Order, error)
	// List returns orders newest first. An empty status matches all.
	List(ctx context.Context, scope Scope, status models.OrderStatus) ([]models.Order, error)
}

type CartStore interface {
	Items(ctx context.Context, userID string) ([]models.CartItem, error)
	RemoveProducts(ctx context.Context, userID string, productIDs []string) error
}

// UserDirectory resolves user ids to their public summary.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
}

// Sequencer hands out increasing numbers per UTC day (YYYYMMDD).
type Sequencer interface {
	Next(ctx context.Context, day string) (int64, error)
}

type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

type Notifier interface {
	Notify(userID, event string, payload any)
}

type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Atomic() bool
}
