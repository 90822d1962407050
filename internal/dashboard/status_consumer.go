package dashboard

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/orders"
)

// StatusConsumer reads only order-status, for clients tracking their own
// orders. It keeps no aggregate.
type StatusConsumer struct {
	onStatus func(orders.OrderStatusUpdate)
	group    *kafkax.GroupConsumer
}

// NewStatusConsumer joins groupID (orders.GroupClientStatus when empty).
func NewStatusConsumer(brokers []string, groupID string, onStatus func(orders.OrderStatusUpdate), log *zap.Logger) (*StatusConsumer, error) {
	if groupID == "" {
		groupID = orders.GroupClientStatus
	}
	group, err := kafkax.NewGroupConsumer(kafkax.GroupConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topics:  []string{orders.TopicOrderStatus},
		Logger:  logger.OrNop(log),
	})
	if err != nil {
		return nil, err
	}
	return &StatusConsumer{onStatus: onStatus, group: group}, nil
}

func (c *StatusConsumer) Run(ctx context.Context) error {
	return c.group.Run(ctx, c.handleMessage)
}

func (c *StatusConsumer) Close() error { return c.group.Close() }

func (c *StatusConsumer) handleMessage(_ context.Context, m kafkago.Message) error {
	if len(m.Value) == 0 {
		return nil
	}
	u, err := kafkax.Decode[orders.OrderStatusUpdate](m)
	if err != nil {
		return err
	}
	if c.onStatus != nil {
		c.onStatus(u)
	}
	return nil
}
