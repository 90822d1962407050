// Package producer validates domain events and publishes them through the
// shared kafka client.
package producer

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-food-court/internal/orders"
)

// Publisher is satisfied by *kafka.Client. Publish must be safe for
// concurrent use and apply the reconnect-and-retry-once policy itself.
type Publisher interface {
	Publish(ctx context.Context, msgs ...kafkago.Message) error
	Disconnect() error
}

type OrderStore interface {
	SaveOrder(ctx context.Context, o orders.Order) (bool, error)
	UpdateOrderStatus(ctx context.Context, u orders.OrderStatusUpdate) (orders.Order, error)
}

type ReactionStore interface {
	AppendReaction(ctx context.Context, r orders.ReactionEvent) error
}
