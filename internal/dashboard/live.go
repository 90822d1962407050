package dashboard

import (
	"sync"

	"github.com/ariefcatur/go-food-court/internal/orders"
)

// DefaultFinishedWindow is how many terminal order ids LiveStats remembers
// to recognise replays after the order left the in-flight ledger.
const DefaultFinishedWindow = 4096

// LiveStats is the dashboard's running aggregate. It starts at zero, is
// lost on restart and may drift from the store under redelivery or
// cross-topic reordering. store.Stats is the authoritative figure.
//
// Status buckets are driven by the last status seen per order rather than
// by the incoming status alone: an update that is not a legal transition
// from that status (a replay, or an update arriving behind a later one) is
// ignored, and no bucket drops below zero.
//
// Only in-flight orders stay in the ledger. An order reaching a terminal
// status moves to a fixed window of finished ids; replays older than that
// window are treated as unknown orders.
type LiveStats struct {
	mu     sync.Mutex
	stats  orders.DashboardStats
	active map[string]*tracked
	done   *finished
}

type tracked struct {
	status  orders.Status
	created bool
}

// finished is a FIFO-bounded set of terminal order ids. The value records
// whether the created event was counted.
type finished struct {
	ids     map[string]bool
	order   []string
	next    int
	maxSize int
}

func newFinished(size int) *finished {
	return &finished{ids: make(map[string]bool, size), order: make([]string, 0, size), maxSize: size}
}

func (f *finished) add(id string, created bool) {
	if _, ok := f.ids[id]; ok {
		f.ids[id] = created
		return
	}
	if len(f.order) < f.maxSize {
		f.order = append(f.order, id)
	} else {
		delete(f.ids, f.order[f.next])
		f.order[f.next] = id
		f.next = (f.next + 1) % f.maxSize
	}
	f.ids[id] = created
}

func NewLiveStats() *LiveStats { return NewLiveStatsWindow(DefaultFinishedWindow) }

// NewLiveStatsWindow sets how many finished order ids are remembered;
// size <= 0 means DefaultFinishedWindow.
func NewLiveStatsWindow(size int) *LiveStats {
	if size <= 0 {
		size = DefaultFinishedWindow
	}
	return &LiveStats{
		stats:  orders.EmptyStats(),
		active: map[string]*tracked{},
		done:   newFinished(size),
	}
}

// ApplyOrder counts a created order once per order id.
func (l *LiveStats) ApplyOrder(o orders.Order) (orders.DashboardStats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if created, ok := l.done.ids[o.OrderID]; ok {
		// finished before its created event arrived
		if created {
			return l.stats.Clone(), false
		}
		l.done.add(o.OrderID, true)
		l.countCreated(o)
		return l.stats.Clone(), true
	}

	// a status update for this order may already have been counted
	t, known := l.active[o.OrderID]
	if known && t.created {
		return l.stats.Clone(), false
	}
	if !known {
		t = &tracked{status: orders.StatusPending}
		l.active[o.OrderID] = t
		l.stats.PendingOrders++
	}
	t.created = true
	l.countCreated(o)
	return l.stats.Clone(), true
}

func (l *LiveStats) countCreated(o orders.Order) {
	l.stats.TotalOrders++
	l.stats.OrdersByFoodType[o.FoodType]++
}

// ApplyStatus moves an order between status buckets.
func (l *LiveStats) ApplyStatus(u orders.OrderStatusUpdate) (orders.DashboardStats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.done.ids[u.OrderID]; ok {
		return l.stats.Clone(), false
	}

	t, known := l.active[u.OrderID]
	var from orders.Status
	if known {
		from = t.status
		if !orders.CanTransition(from, u.Status) {
			return l.stats.Clone(), false
		}
	} else {
		var ok bool
		if from, ok = orders.Predecessor(u.Status); !ok {
			return l.stats.Clone(), false
		}
		t = &tracked{}
	}

	if b := l.stats.Bucket(from); b != nil && *b > 0 {
		*b--
	}
	if b := l.stats.Bucket(u.Status); b != nil {
		*b++
	}

	if u.Status.Terminal() {
		delete(l.active, u.OrderID)
		l.done.add(u.OrderID, t.created)
	} else {
		t.status = u.Status
		l.active[u.OrderID] = t
	}
	return l.stats.Clone(), true
}

// InFlight is the number of orders held in the ledger.
func (l *LiveStats) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

func (l *LiveStats) ApplyReaction(r orders.ReactionEvent) orders.DashboardStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.ReactionCounts[r.Reaction]++
	return l.stats.Clone()
}

// ApplyKitchenMetric keeps the newest metric per kitchen.
func (l *LiveStats) ApplyKitchenMetric(m orders.KitchenMetric) (orders.DashboardStats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.stats.KitchenStats[m.KitchenID]; ok && m.Timestamp.Before(cur.Timestamp) {
		return l.stats.Clone(), false
	}
	l.stats.KitchenStats[m.KitchenID] = m
	return l.stats.Clone(), true
}

func (l *LiveStats) Snapshot() orders.DashboardStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.Clone()
}
