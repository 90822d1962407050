package store

import (
	"context"
	"time"

	"github.com/ariefcatur/go-food-court/internal/orders"
)

// Stats recomputes the dashboard aggregate from persisted orders and
// reactions. This is the authoritative figure; the dashboard consumer's live
// aggregate is only an approximation of it.
func (s *Store) Stats(ctx context.Context) (orders.DashboardStats, error) {
	now := s.now().UTC()
	return view(ctx, s, func(d *document) orders.DashboardStats {
		return computeStats(d, now)
	})
}

type kitchenAcc struct {
	processed int
	total     time.Duration
	timed     int
}

func computeStats(d *document, now time.Time) orders.DashboardStats {
	st := orders.EmptyStats()
	st.TotalOrders = len(d.Orders)

	kitchens := map[string]*kitchenAcc{}
	for _, o := range d.Orders {
		if b := st.Bucket(o.Status); b != nil {
			*b++
		}
		st.OrdersByFoodType[o.FoodType]++

		if o.KitchenID == "" {
			continue
		}
		acc := kitchens[o.KitchenID]
		if acc == nil {
			acc = &kitchenAcc{}
			kitchens[o.KitchenID] = acc
		}
		// a kitchen has processed an order once it left the line
		if o.Status == orders.StatusReady || o.Status == orders.StatusDelivered || o.Status == orders.StatusRejected {
			acc.processed++
			if o.UpdatedAt != nil && o.UpdatedAt.After(o.CreatedAt) {
				acc.total += o.UpdatedAt.Sub(o.CreatedAt)
				acc.timed++
			}
		}
	}

	for id, acc := range kitchens {
		m := orders.KitchenMetric{KitchenID: id, OrdersProcessed: acc.processed, Timestamp: now}
		if acc.timed > 0 {
			m.AverageProcessingTimeMs = (acc.total / time.Duration(acc.timed)).Milliseconds()
		}
		st.KitchenStats[id] = m
	}

	for _, r := range d.Reactions {
		st.ReactionCounts[r.Reaction]++
	}
	return st
}
