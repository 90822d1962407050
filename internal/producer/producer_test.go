package producer

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/orders"
	"github.com/ariefcatur/go-food-court/internal/store"
)

type fakePublisher struct {
	mu           sync.Mutex
	msgs         []kafkago.Message
	err          error
	disconnected bool
}

func (f *fakePublisher) Publish(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakePublisher) Disconnect() error {
	f.disconnected = true
	return nil
}

func (f *fakePublisher) onTopic(topic string) []kafkago.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []kafkago.Message
	for _, m := range f.msgs {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func validOrder() orders.Order {
	return orders.Order{
		OrderID:  "abc123",
		UserID:   "u1",
		UserName: "Ana",
		FoodType: orders.FoodPizza,
		Item:     "pizza Special",
		Quantity: 2,
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPublishOrder_InvalidGoesToDeadLetter(t *testing.T) {
	tests := []struct {
		name string
		mut  func(o *orders.Order)
	}{
		{"quantity zero", func(o *orders.Order) { o.Quantity = 0 }},
		{"quantity eleven", func(o *orders.Order) { o.Quantity = 11 }},
		{"negative quantity", func(o *orders.Order) { o.Quantity = -3 }},
		{"unknown food", func(o *orders.Order) { o.FoodType = "sushi" }},
		{"missing user name", func(o *orders.Order) { o.UserName = "" }},
		{"missing id", func(o *orders.Order) { o.OrderID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			st := openStore(t)
			p := &OrderProducer{Client: pub, Store: st}

			o := validOrder()
			tt.mut(&o)
			err := p.PublishOrder(context.Background(), o)

			require.ErrorIs(t, err, ErrOrderRejected)
			assert.True(t, orders.IsValidation(err))
			assert.Empty(t, pub.onTopic(orders.TopicOrders))

			dl := pub.onTopic(orders.TopicDeadLetter)
			require.Len(t, dl, 1)
			got, err := kafkax.Decode[orders.DeadLetterMessage](dl[0])
			require.NoError(t, err)
			assert.Equal(t, orders.TopicOrders, got.OriginalTopic)
			assert.NotEmpty(t, got.Reason)
			assert.False(t, got.FailedAt.IsZero())

			var raw orders.Order
			require.NoError(t, json.Unmarshal([]byte(got.OriginalMessage), &raw))
			assert.Equal(t, o.Quantity, raw.Quantity)
			assert.Equal(t, o.FoodType, raw.FoodType)

			recent, err := st.RecentOrders(context.Background(), 10)
			require.NoError(t, err)
			assert.Empty(t, recent)
		})
	}
}

func TestPublishOrder_DeadLetterFailureStillRejects(t *testing.T) {
	boom := errors.New("broker down")
	p := &OrderProducer{Client: &fakePublisher{err: boom}}

	o := validOrder()
	o.Quantity = 50
	err := p.PublishOrder(context.Background(), o)
	assert.ErrorIs(t, err, ErrOrderRejected)
	assert.ErrorIs(t, err, boom)
}

func TestPublishOrder_Valid(t *testing.T) {
	pub := &fakePublisher{}
	st := openStore(t)
	p := &OrderProducer{Client: pub, Store: st}

	o := validOrder()
	o.Status = orders.StatusReady // forced back to PENDING
	require.NoError(t, p.PublishOrder(context.Background(), o))

	msgs := pub.onTopic(orders.TopicOrders)
	require.Len(t, msgs, 1)
	assert.Equal(t, "abc123", string(msgs[0].Key))
	assert.Equal(t, orders.ContentTypeJSON, kafkax.Header(msgs[0], orders.HeaderContentType))
	assert.Equal(t, orders.EventOrderCreated, kafkax.Header(msgs[0], orders.HeaderEventType))
	assert.Empty(t, pub.onTopic(orders.TopicDeadLetter))

	sent, err := kafkax.Decode[orders.Order](msgs[0])
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, sent.Status)
	assert.False(t, sent.CreatedAt.IsZero())

	saved, err := st.GetOrder(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, orders.StatusPending, saved.Status)
}

func TestPublishOrder_TransportErrorPropagates(t *testing.T) {
	terr := &kafkax.TransportError{Op: "publish", Topic: orders.TopicOrders, Err: kafkago.MessageSizeTooLarge}
	st := openStore(t)
	p := &OrderProducer{Client: &fakePublisher{err: terr}, Store: st}

	err := p.PublishOrder(context.Background(), validOrder())
	var got *kafkax.TransportError
	require.ErrorAs(t, err, &got)

	saved, err := st.GetOrder(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Nil(t, saved, "nothing persisted when the publish failed")
}

func TestPublishOrderStatus(t *testing.T) {
	pub := &fakePublisher{}
	st := openStore(t)
	p := &OrderProducer{Client: pub, Store: st}
	ctx := context.Background()
	require.NoError(t, p.PublishOrder(ctx, validOrder()))

	err := p.PublishOrderStatus(ctx, "abc123", orders.StatusDelivered, "kitchen-1", "")
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
	assert.Empty(t, pub.onTopic(orders.TopicOrderStatus), "illegal transition never published")

	require.NoError(t, p.PublishOrderStatus(ctx, "abc123", orders.StatusPreparing, "kitchen-1", ""))
	require.NoError(t, p.PublishOrderStatus(ctx, "abc123", orders.StatusReady, "kitchen-1", ""))

	msgs := pub.onTopic(orders.TopicOrderStatus)
	require.Len(t, msgs, 2)
	for i, want := range []orders.Status{orders.StatusPreparing, orders.StatusReady} {
		assert.Equal(t, "abc123", string(msgs[i].Key))
		assert.Equal(t, orders.EventOrderStatusUpdated, kafkax.Header(msgs[i], orders.HeaderEventType))
		u, err := kafkax.Decode[orders.OrderStatusUpdate](msgs[i])
		require.NoError(t, err)
		assert.Equal(t, want, u.Status)
		assert.Equal(t, "kitchen-1", u.KitchenID)
	}

	saved, err := st.GetOrder(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusReady, saved.Status)
	assert.Equal(t, "kitchen-1", saved.KitchenID)
}

func TestPublishOrderStatus_RetryAfterTransportFailure(t *testing.T) {
	pub := &fakePublisher{}
	st := openStore(t)
	p := &OrderProducer{Client: pub, Store: st}
	ctx := context.Background()
	require.NoError(t, p.PublishOrder(ctx, validOrder()))

	pub.mu.Lock()
	pub.err = &kafkax.TransportError{Op: "publish", Topic: orders.TopicOrderStatus, Err: errors.New("conn reset"), Recoverable: true}
	pub.mu.Unlock()

	err := p.PublishOrderStatus(ctx, "abc123", orders.StatusPreparing, "kitchen-1", "")
	var terr *kafkax.TransportError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Temporary())
	assert.Empty(t, pub.onTopic(orders.TopicOrderStatus))

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	require.NoError(t, p.PublishOrderStatus(ctx, "abc123", orders.StatusPreparing, "kitchen-1", ""))
	msgs := pub.onTopic(orders.TopicOrderStatus)
	require.Len(t, msgs, 1)
	u, err := kafkax.Decode[orders.OrderStatusUpdate](msgs[0])
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPreparing, u.Status)

	// the transition goes on normally afterwards
	require.NoError(t, p.PublishOrderStatus(ctx, "abc123", orders.StatusReady, "kitchen-1", ""))
	assert.Len(t, pub.onTopic(orders.TopicOrderStatus), 2)
}

func TestPublishOrderStatus_WithoutStore(t *testing.T) {
	pub := &fakePublisher{}
	p := &OrderProducer{Client: pub}

	require.NoError(t, p.PublishOrderStatus(context.Background(), "o9", orders.StatusRejected, "kitchen-2", "out of dough"))
	msgs := pub.onTopic(orders.TopicOrderStatus)
	require.Len(t, msgs, 1)
	u, err := kafkax.Decode[orders.OrderStatusUpdate](msgs[0])
	require.NoError(t, err)
	assert.Equal(t, "out of dough", u.Reason)

	err = p.PublishOrderStatus(context.Background(), "o9", "COOKING", "kitchen-2", "")
	assert.True(t, orders.IsValidation(err))
}

func TestPublishReaction(t *testing.T) {
	pub := &fakePublisher{}
	st := openStore(t)
	p := &ReactionProducer{Client: pub, Store: st}
	ctx := context.Background()

	err := p.PublishReaction(ctx, "u1", "💩")
	assert.True(t, orders.IsValidation(err))
	assert.Empty(t, pub.msgs)
	assert.Empty(t, pub.onTopic(orders.TopicDeadLetter))

	require.NoError(t, p.PublishReaction(ctx, "u1", "🔥"))
	msgs := pub.onTopic(orders.TopicReactions)
	require.Len(t, msgs, 1)
	assert.Equal(t, "u1", string(msgs[0].Key))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ReactionCounts["🔥"])
}

func TestPublishKitchenMetric(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, PublishKitchenMetric(context.Background(), pub, orders.KitchenMetric{KitchenID: "kitchen-1", OrdersProcessed: 3}))

	msgs := pub.onTopic(orders.TopicKitchenMetrics)
	require.Len(t, msgs, 1)
	assert.Equal(t, "kitchen-1", string(msgs[0].Key))
}

func TestDisconnect(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, (&OrderProducer{Client: pub}).Disconnect())
	assert.True(t, pub.disconnected)
}
