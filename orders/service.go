// Package orders turns a cart into per-farmer orders and drives the order
// lifecycle afterwards.
package orders

import (
	"context"
	"log/slog"
	"time"

	"agromart/db"
	"agromart/models"
	"agromart/utils"
)

const (
	EventOrderPlaced = "order_placed"
	EventOrderStatus = "order_status"
)

type Deps struct {
	Orders   Store
	Carts    CartStore
	Users    UserDirectory
	Sequence Sequencer
	Locks    Locker
	Tx       TxRunner
	Notifier Notifier
}

type Service struct {
	orders   Store
	carts    CartStore
	users    UserDirectory
	seq      Sequencer
	locks    Locker
	tx       TxRunner
	notifier Notifier

	now   func() time.Time
	newID func() string
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, any) {}

// NewService fills unset optional deps: an in-process lock, no transaction
// and no notifications.
func NewService(d Deps) *Service {
	s := &Service{
		orders:   d.Orders,
		carts:    d.Carts,
		users:    d.Users,
		seq:      d.Sequence,
		locks:    d.Locks,
		tx:       d.Tx,
		notifier: d.Notifier,
		now:      time.Now,
		newID:    utils.GetUUID,
	}
	if s.locks == nil {
		s.locks = NewLocalLocker()
	}
	if s.tx == nil {
		s.tx = db.DirectRunner{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	return s
}

// populate attaches user summaries. Ids with no user behind them keep a
// summary carrying only the id.
func (s *Service) populate(ctx context.Context, orders []models.Order, consumer, farmer bool) ([]models.OrderView, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; !ok && id != "" {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, o := range orders {
		if consumer {
			add(o.Consumer)
		}
		if farmer {
			add(o.Farmer)
		}
	}

	summaries := map[string]models.UserSummary{}
	if len(ids) > 0 {
		var err error
		if summaries, err = s.users.Summaries(ctx, ids); err != nil {
			return nil, err
		}
	}
	lookup := func(id string) *models.UserSummary {
		if u, ok := summaries[id]; ok {
			return &u
		}
		return &models.UserSummary{ID: id}
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		v := models.OrderView{Order: o}
		if consumer {
			v.Consumer = lookup(o.Consumer)
		} else {
			v.Consumer = &models.UserSummary{ID: o.Consumer}
		}
		if farmer {
			v.Farmer = lookup(o.Farmer)
		} else {
			v.Farmer = &models.UserSummary{ID: o.Farmer}
		}
		views = append(views, v)
	}
	return views, nil
}

// populateOrBare is for paths where the write already happened and a
// directory outage must not fail the request.
func (s *Service) populateOrBare(ctx context.Context, orders []models.Order, consumer, farmer bool) []models.OrderView {
	views, err := s.populate(ctx, orders, consumer, farmer)
	if err == nil {
		return views
	}
	slog.WarnContext(ctx, "populate order users", "error", err)
	views, _ = s.populate(ctx, orders, false, false)
	return views
}
