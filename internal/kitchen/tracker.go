package kitchen

import (
	"sync"
	"time"

	"github.com/ariefcatur/go-food-court/internal/orders"
)

// Tracker measures how long this kitchen holds an order, from receipt to
// the moment it leaves the line (READY or REJECTED).
type Tracker struct {
	kitchenID string
	now       func() time.Time

	mu        sync.Mutex
	received  map[string]time.Time
	processed int
	total     time.Duration
	timed     int
}

func NewTracker(kitchenID string) *Tracker {
	return &Tracker{
		kitchenID: kitchenID,
		now:       time.Now,
		received:  map[string]time.Time{},
	}
}

// Received records the first receipt of an order; redeliveries keep the
// original time.
func (t *Tracker) Received(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.received[orderID]; !ok {
		t.received[orderID] = t.now()
	}
}

// Completed counts the order as processed. Orders never seen by Received
// are counted but not timed.
func (t *Tracker) Completed(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	if at, ok := t.received[orderID]; ok {
		t.total += t.now().Sub(at)
		t.timed++
		delete(t.received, orderID)
	}
}

// InFlight is the number of received orders not yet completed.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.received)
}

func (t *Tracker) Snapshot() orders.KitchenMetric {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := orders.KitchenMetric{
		KitchenID:       t.kitchenID,
		OrdersProcessed: t.processed,
		Timestamp:       t.now().UTC(),
	}
	if t.timed > 0 {
		m.AverageProcessingTimeMs = (t.total / time.Duration(t.timed)).Milliseconds()
	}
	return m
}
