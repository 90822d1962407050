package store

import (
	"context"
	"errors"
	"slices"

	"github.com/ariefcatur/go-food-court/internal/orders"
)

// SaveOrder inserts o unless an order with the same id exists. The bool
// reports whether it was inserted; a repeat is a no-op, which is what makes
// at-least-once delivery safe.
func (s *Store) SaveOrder(ctx context.Context, o orders.Order) (bool, error) {
	if o.OrderID == "" {
		return false, errors.New("order id is required")
	}
	if o.Status == "" {
		o.Status = orders.StatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now().UTC()
	}
	return mutate(ctx, s, func(d *document) (bool, error) {
		if slices.ContainsFunc(d.Orders, func(x orders.Order) bool { return x.OrderID == o.OrderID }) {
			return false, nil
		}
		d.Orders = slices.Insert(d.Orders, 0, o)
		return true, nil
	})
}

// GetOrder returns nil when the order does not exist.
func (s *Store) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	return view(ctx, s, func(d *document) *orders.Order {
		for _, o := range d.Orders {
			if o.OrderID == orderID {
				return &o
			}
		}
		return nil
	})
}

// UpdateOrderStatus applies u to the stored order. Transitions outside the
// status state machine are rejected with a *TransitionError. Repeating the
// current status from the same kitchen leaves the order untouched and
// succeeds, so a publish that failed after the write can be retried.
func (s *Store) UpdateOrderStatus(ctx context.Context, u orders.OrderStatusUpdate) (orders.Order, error) {
	if !u.Status.Valid() {
		return orders.Order{}, &orders.ValidationError{Field: "status", Reason: "unknown status " + string(u.Status)}
	}
	return mutate(ctx, s, func(d *document) (orders.Order, error) {
		i := slices.IndexFunc(d.Orders, func(x orders.Order) bool { return x.OrderID == u.OrderID })
		if i < 0 {
			return orders.Order{}, ErrOrderNotFound
		}
		o := d.Orders[i]
		if o.Status == u.Status && o.KitchenID == u.KitchenID {
			return o, nil
		}
		if !orders.CanTransition(o.Status, u.Status) {
			return orders.Order{}, &TransitionError{OrderID: o.OrderID, From: o.Status, To: u.Status}
		}
		at := u.UpdatedAt
		if at.IsZero() {
			at = s.now().UTC()
		}
		o.Status = u.Status
		o.UpdatedAt = &at
		if u.KitchenID != "" {
			o.KitchenID = u.KitchenID
		}
		d.Orders[i] = o
		return o, nil
	})
}

func newestFirst(a, b orders.Order) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}

func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return view(ctx, s, func(d *document) []orders.Order {
		out := []orders.Order{}
		for _, o := range d.Orders {
			if o.UserID == userID {
				out = append(out, o)
			}
		}
		slices.SortStableFunc(out, newestFirst)
		return out
	})
}

// RecentOrders returns at most limit orders, newest first. limit <= 0 means
// DefaultRecentLimit.
func (s *Store) RecentOrders(ctx context.Context, limit int) ([]orders.Order, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return view(ctx, s, func(d *document) []orders.Order {
		out := slices.Clone(d.Orders)
		slices.SortStableFunc(out, newestFirst)
		if len(out) > limit {
			out = out[:limit]
		}
		return out
	})
}

func (s *Store) AppendReaction(ctx context.Context, r orders.ReactionEvent) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now().UTC()
	}
	_, err := mutate(ctx, s, func(d *document) (struct{}, error) {
		d.Reactions = slices.Insert(d.Reactions, 0, r)
		return struct{}{}, nil
	})
	return err
}
