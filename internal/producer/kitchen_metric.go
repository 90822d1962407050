package producer

import (
	"context"

	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/orders"
)

// PublishKitchenMetric reports one kitchen's throughput, keyed by kitchen.
func PublishKitchenMetric(ctx context.Context, pub Publisher, m orders.KitchenMetric) error {
	msg, err := kafkax.JSONMessage(orders.TopicKitchenMetrics, []byte(m.KitchenID), m, orders.EventKitchenMetric)
	if err != nil {
		return err
	}
	return pub.Publish(ctx, msg)
}
