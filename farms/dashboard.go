package farms

import (
	"agromart/models"

	"github.com/shopspring/decimal"
)

// Dashboard summarises a farmer's inbox.
type Dashboard struct {
	Counts       map[models.OrderStatus]int `json:"counts"`
	Open         int                        `json:"open"`
	Revenue      float64                    `json:"revenue"`
	PendingCash  float64                    `json:"pendingCash"`
	RecentOrders []models.OrderView         `json:"recentOrders"`
}

const recentOrders = 5

// Summarize expects orders newest first. Revenue counts delivered orders;
// PendingCash is what open cash-on-delivery orders will collect.
func Summarize(orders []models.OrderView) Dashboard {
	d := Dashboard{
		Counts:       make(map[models.OrderStatus]int),
		RecentOrders: []models.OrderView{},
	}
	revenue, pending := decimal.Zero, decimal.Zero
	for _, o := range orders {
		d.Counts[o.Status]++
		value := decimal.NewFromFloat(o.TotalAmount).Add(decimal.NewFromFloat(o.DeliveryCharge))
		switch {
		case o.Status == models.StatusDelivered:
			revenue = revenue.Add(value)
		case !o.Status.Terminal():
			d.Open++
			if o.PaymentMethod == models.PaymentCOD {
				pending = pending.Add(value)
			}
		}
		if !o.Status.Terminal() && len(d.RecentOrders) < recentOrders {
			d.RecentOrders = append(d.RecentOrders, o)
		}
	}
	d.Revenue = revenue.Round(2).InexactFloat64()
	d.PendingCash = pending.Round(2).InexactFloat64()
	return d
}
