package kitchen

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/orders"
	"github.com/ariefcatur/go-food-court/internal/producer"
)

type OrderSaver interface {
	SaveOrder(ctx context.Context, o orders.Order) (bool, error)
}

type StatusPublisher interface {
	PublishOrderStatus(ctx context.Context, orderID string, status orders.Status, kitchenID, reason string) error
}

type Service struct {
	KitchenID string
	Store     OrderSaver      // dedup order yang dikirim ulang
	Producer  StatusPublisher // publish order-status
	Tracker   *Tracker
	Log       *zap.Logger
}

// HandleOrder: dipasang sebagai Callbacks.OnOrder.
func (s *Service) HandleOrder(ctx context.Context, o orders.Order) {
	log := logger.OrNop(s.Log)
	if s.Store != nil {
		inserted, err := s.Store.SaveOrder(ctx, o)
		switch {
		case err != nil:
			log.Error("save received order", zap.String("order_id", o.OrderID), zap.Error(err))
		case !inserted:
			log.Debug("order redelivered", zap.String("order_id", o.OrderID))
		}
	}
	if s.Tracker != nil {
		s.Tracker.Received(o.OrderID)
	}
	log.Info("order queued", zap.String("order_id", o.OrderID), zap.String("item", o.Item), zap.Int("quantity", o.Quantity))
}

// Transition moves an order on from this kitchen. A rejection must carry
// a reason.
func (s *Service) Transition(ctx context.Context, orderID string, status orders.Status, reason string) error {
	if status == orders.StatusRejected && reason == "" {
		return &orders.ValidationError{Field: "reason", Reason: "required when rejecting an order"}
	}
	if err := s.Producer.PublishOrderStatus(ctx, orderID, status, s.KitchenID, reason); err != nil {
		return err
	}
	if s.Tracker != nil && (status == orders.StatusReady || status == orders.StatusRejected) {
		s.Tracker.Completed(orderID)
	}
	return nil
}

// ReportMetrics publishes the tracker snapshot every interval until ctx is
// done. Publish failures are logged and the loop keeps going.
func (s *Service) ReportMetrics(ctx context.Context, pub producer.Publisher, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m := s.Tracker.Snapshot()
			if err := producer.PublishKitchenMetric(ctx, pub, m); err != nil && ctx.Err() == nil {
				logger.OrNop(s.Log).Warn("publish kitchen metric", zap.Error(err))
			}
		}
	}
}
