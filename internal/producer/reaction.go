package producer

import (
	"context"
	"time"

	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/orders"
)

// ReactionProducer publishes audience reactions. Reactions are low stakes:
// an invalid one is returned as a validation error, not dead-lettered.
type ReactionProducer struct {
	Client Publisher
	Store  ReactionStore // optional
	Log    *zap.Logger
}

// PublishReaction is keyed by user id so one user's reactions stay ordered.
func (p *ReactionProducer) PublishReaction(ctx context.Context, userID, reaction string) error {
	if err := orders.ValidateReaction(userID, reaction); err != nil {
		return err
	}
	ev := orders.ReactionEvent{UserID: userID, Reaction: reaction, Timestamp: time.Now().UTC()}

	msg, err := kafkax.JSONMessage(orders.TopicReactions, []byte(userID), ev, orders.EventReaction)
	if err != nil {
		return err
	}
	if err := p.Client.Publish(ctx, msg); err != nil {
		return err
	}
	if p.Store != nil {
		if err := p.Store.AppendReaction(ctx, ev); err != nil {
			logger.OrNop(p.Log).Warn("reaction published but not saved", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

func (p *ReactionProducer) Disconnect() error { return p.Client.Disconnect() }
