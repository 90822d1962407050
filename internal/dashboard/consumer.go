// Package dashboard follows the full event stream in its own consumer
// group and keeps a live, advisory aggregate of it.
package dashboard

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/orders"
)

// Update is emitted after every handled message.
type Update struct {
	Stats       orders.DashboardStats `json:"stats"`
	Description string                `json:"description"`
}

// Callbacks may be called concurrently from different partitions.
type Callbacks struct {
	OnOrderCreated  func(o orders.Order)
	OnStatusUpdate  func(u orders.OrderStatusUpdate)
	OnReaction      func(r orders.ReactionEvent)
	OnKitchenMetric func(m orders.KitchenMetric)
	OnStatsUpdate   func(u Update)
}

type Consumer struct {
	cb    Callbacks
	live  *LiveStats
	group *kafkax.GroupConsumer
	log   *zap.Logger
}

// DashboardTopics is everything the dashboard group subscribes to.
func DashboardTopics() []string {
	return []string{orders.TopicOrders, orders.TopicOrderStatus, orders.TopicReactions, orders.TopicKitchenMetrics}
}

// NewConsumer joins groupID (orders.GroupDashboard when empty). The group
// must not be shared with kitchens, or the dashboard would only see the
// partitions the broker left it.
func NewConsumer(brokers []string, groupID string, cb Callbacks, log *zap.Logger) (*Consumer, error) {
	if groupID == "" {
		groupID = orders.GroupDashboard
	}
	if groupID == orders.GroupKitchens {
		return nil, fmt.Errorf("dashboard cannot join the %q group", orders.GroupKitchens)
	}
	log = logger.OrNop(log)
	group, err := kafkax.NewGroupConsumer(kafkax.GroupConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topics:  DashboardTopics(),
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	return &Consumer{cb: cb, live: NewLiveStats(), group: group, log: log}, nil
}

// Live exposes the running aggregate for snapshot reads.
func (c *Consumer) Live() *LiveStats { return c.live }

func (c *Consumer) Run(ctx context.Context) error {
	return c.group.Run(ctx, c.handleMessage)
}

func (c *Consumer) Close() error { return c.group.Close() }

func (c *Consumer) handleMessage(_ context.Context, m kafkago.Message) error {
	if len(m.Value) == 0 {
		return nil
	}

	var (
		stats orders.DashboardStats
		desc  string
	)
	switch m.Topic {
	case orders.TopicOrders:
		o, err := kafkax.Decode[orders.Order](m)
		if err != nil {
			return err
		}
		stats, _ = c.live.ApplyOrder(o)
		desc = fmt.Sprintf("New order: %s (%s)", o.Item, shortID(o.OrderID))
		if c.cb.OnOrderCreated != nil {
			c.cb.OnOrderCreated(o)
		}

	case orders.TopicOrderStatus:
		u, err := kafkax.Decode[orders.OrderStatusUpdate](m)
		if err != nil {
			return err
		}
		var applied bool
		if stats, applied = c.live.ApplyStatus(u); !applied {
			c.log.Debug("status update not counted",
				zap.String("order_id", u.OrderID),
				zap.String("status", string(u.Status)),
				zap.Int64("offset", m.Offset),
			)
		}
		desc = fmt.Sprintf("Order %s is now %s", shortID(u.OrderID), u.Status)
		if c.cb.OnStatusUpdate != nil {
			c.cb.OnStatusUpdate(u)
		}

	case orders.TopicReactions:
		r, err := kafkax.Decode[orders.ReactionEvent](m)
		if err != nil {
			return err
		}
		stats = c.live.ApplyReaction(r)
		desc = "Reaction: " + r.Reaction
		if c.cb.OnReaction != nil {
			c.cb.OnReaction(r)
		}

	case orders.TopicKitchenMetrics:
		km, err := kafkax.Decode[orders.KitchenMetric](m)
		if err != nil {
			return err
		}
		stats, _ = c.live.ApplyKitchenMetric(km)
		desc = fmt.Sprintf("Kitchen %s processed %d orders", km.KitchenID, km.OrdersProcessed)
		if c.cb.OnKitchenMetric != nil {
			c.cb.OnKitchenMetric(km)
		}

	default:
		return fmt.Errorf("unexpected topic %q", m.Topic)
	}

	if c.cb.OnStatsUpdate != nil {
		c.cb.OnStatsUpdate(Update{Stats: stats, Description: desc})
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 4 {
		return id[:4]
	}
	return id
}
