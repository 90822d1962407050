// Package kitchen consumes the orders topic as one member of the shared
// kitchens group and tracks per-kitchen throughput.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/orders"
)

// Callbacks are invoked from partition goroutines. OnOrder is called for
// one partition at a time in offset order, but different partitions call
// it concurrently.
type Callbacks struct {
	OnOrder     func(ctx context.Context, o orders.Order)
	OnRebalance func(partitions []int)
	OnError     func(err error)
}

type Consumer struct {
	kitchenID string
	cb        Callbacks
	group     *kafkax.GroupConsumer
	log       *zap.Logger

	mu         sync.RWMutex
	partitions []int
}

// NewConsumer joins the kitchens group over the orders topic. Every kitchen
// instance shares the group, so the broker splits partitions between them.
func NewConsumer(kitchenID string, brokers []string, cb Callbacks, log *zap.Logger) (*Consumer, error) {
	if kitchenID == "" {
		return nil, errors.New("kitchen id is required")
	}
	log = logger.OrNop(log).With(zap.String("kitchen_id", kitchenID))
	c := &Consumer{kitchenID: kitchenID, cb: cb, log: log}

	group, err := kafkax.NewGroupConsumer(kafkax.GroupConfig{
		Brokers:     brokers,
		GroupID:     orders.GroupKitchens,
		Topics:      []string{orders.TopicOrders},
		OnRebalance: c.onRebalance,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	c.group = group
	return c, nil
}

func (c *Consumer) KitchenID() string { return c.kitchenID }

// Run blocks until ctx is cancelled or Close is called.
func (c *Consumer) Run(ctx context.Context) error {
	return c.group.Run(ctx, c.handleMessage)
}

// Close stops polling; orders already being handled finish first.
func (c *Consumer) Close() error { return c.group.Close() }

// Partitions returns the orders-topic partitions currently assigned here.
func (c *Consumer) Partitions() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.partitions)
}

func (c *Consumer) onRebalance(assigned map[string][]int) {
	parts := slices.Clone(assigned[orders.TopicOrders])
	if parts == nil {
		parts = []int{}
	}
	c.mu.Lock()
	c.partitions = parts
	c.mu.Unlock()

	c.log.Info("kitchen partitions assigned", zap.Ints("partitions", parts))
	if c.cb.OnRebalance != nil {
		c.cb.OnRebalance(slices.Clone(parts))
	}
}

// handleMessage: decode order lalu teruskan ke callback. Payload rusak
// dilaporkan ke OnError dan dilewati.
func (c *Consumer) handleMessage(ctx context.Context, m kafkago.Message) error {
	if len(m.Value) == 0 {
		return nil
	}
	if et := kafkax.Header(m, orders.HeaderEventType); et != "" && et != orders.EventOrderCreated {
		return nil // ignore
	}

	o, err := kafkax.Decode[orders.Order](m)
	if err == nil && o.OrderID == "" {
		err = fmt.Errorf("decode %s message at offset %d: missing orderId", m.Topic, m.Offset)
	}
	if err != nil {
		if c.cb.OnError != nil {
			c.cb.OnError(err)
		}
		return err
	}

	c.log.Debug("order received",
		zap.String("order_id", o.OrderID),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)
	if c.cb.OnOrder != nil {
		c.cb.OnOrder(ctx, o)
	}
	return nil
}
