package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/metrics"
	"github.com/ariefcatur/go-food-court/internal/orders"
)

// ErrOrderRejected is returned, wrapping the *orders.ValidationError, for
// every order that failed validation and went to the dead-letter topic.
var ErrOrderRejected = errors.New("order rejected")

type OrderProducer struct {
	Client Publisher
	Store  OrderStore // optional; nil publishes without persisting
	Log    *zap.Logger
}

// PublishOrder validates o and publishes it to the orders topic keyed by
// order id. Invalid orders are captured on the dead-letter topic and
// reported as ErrOrderRejected; they never reach the orders topic.
func (p *OrderProducer) PublishOrder(ctx context.Context, o orders.Order) error {
	log := logger.OrNop(p.Log)

	if verr := orders.ValidateOrder(o); verr != nil {
		log.Warn("order rejected",
			zap.String("order_id", o.OrderID),
			zap.Error(verr),
		)
		if err := p.deadLetter(ctx, orders.TopicOrders, o, verr.Error()); err != nil {
			return fmt.Errorf("%w: %w (dead-letter failed: %w)", ErrOrderRejected, verr, err)
		}
		return fmt.Errorf("%w: %w", ErrOrderRejected, verr)
	}

	o.Status = orders.StatusPending
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	msg, err := kafkax.JSONMessage(orders.TopicOrders, orders.PartitionKey(o.OrderID), o, orders.EventOrderCreated)
	if err != nil {
		return err
	}
	if err := p.Client.Publish(ctx, msg); err != nil {
		return err
	}
	log.Info("order published",
		zap.String("order_id", o.OrderID),
		zap.Int("partition", orders.OrderPartition(o.OrderID)),
	)

	if p.Store != nil {
		if _, err := p.Store.SaveOrder(ctx, o); err != nil {
			return fmt.Errorf("order %s published but not saved: %w", o.OrderID, err)
		}
	}
	return nil
}

// PublishOrderStatus publishes a status transition keyed by order id, so
// every transition of one order lands on one partition in publish order.
// With a store attached the transition is applied there first and an
// illegal one is never published.
func (p *OrderProducer) PublishOrderStatus(ctx context.Context, orderID string, status orders.Status, kitchenID, reason string) error {
	u := orders.OrderStatusUpdate{
		OrderID:   orderID,
		Status:    status,
		KitchenID: kitchenID,
		UpdatedAt: time.Now().UTC(),
		Reason:    reason,
	}
	if err := orders.ValidateStatusUpdate(u); err != nil {
		return err
	}

	if p.Store != nil {
		if _, err := p.Store.UpdateOrderStatus(ctx, u); err != nil {
			return err
		}
	}

	msg, err := kafkax.JSONMessage(orders.TopicOrderStatus, orders.PartitionKey(orderID), u, orders.EventOrderStatusUpdated)
	if err != nil {
		return err
	}
	if err := p.Client.Publish(ctx, msg); err != nil {
		return err
	}
	logger.OrNop(p.Log).Info("order status published",
		zap.String("order_id", orderID),
		zap.String("status", string(status)),
		zap.String("kitchen_id", kitchenID),
	)
	return nil
}

func (p *OrderProducer) deadLetter(ctx context.Context, topic string, original any, reason string) error {
	raw, err := json.Marshal(original)
	if err != nil {
		raw = []byte(fmt.Sprintf("%+v", original))
	}
	dl := orders.DeadLetterMessage{
		OriginalTopic:   topic,
		OriginalMessage: string(raw),
		Reason:          reason,
		FailedAt:        time.Now().UTC(),
	}
	msg, err := kafkax.JSONMessage(orders.TopicDeadLetter, []byte(topic), dl, orders.EventOrderDeadLetter)
	if err != nil {
		return err
	}
	if err := p.Client.Publish(ctx, msg); err != nil {
		return err
	}
	metrics.DeadLetters.WithLabelValues(topic).Inc()
	return nil
}

// Disconnect releases the transport connection for graceful shutdown.
func (p *OrderProducer) Disconnect() error { return p.Client.Disconnect() }
