package dashboard

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/metrics"
)

const DefaultBufferSize = 16

// Broadcaster fans values out to subscribers. Each subscriber owns a
// bounded buffer; when it is full the oldest pending value is dropped so a
// slow reader never blocks Publish or the other subscribers.
type Broadcaster[T any] struct {
	name string
	size int
	log  *zap.Logger

	mu     sync.RWMutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

type Subscription[T any] struct {
	ch chan T
}

// C is closed on Unsubscribe or when the broadcaster closes.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// NewBroadcaster names the stream for metrics. size <= 0 means
// DefaultBufferSize.
func NewBroadcaster[T any](name string, size int, log *zap.Logger) *Broadcaster[T] {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Broadcaster[T]{
		name: name,
		size: size,
		log:  logger.OrNop(log),
		subs: map[*Subscription[T]]struct{}{},
	}
}

// Subscribe returns a subscription that receives every value published
// after this call. After Close it returns an already-closed subscription.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{ch: make(chan T, b.size)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs[s] = struct{}{}
	metrics.StreamSubscribers.WithLabelValues(b.name).Inc()
	return s
}

func (b *Broadcaster[T]) Unsubscribe(s *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	close(s.ch)
	metrics.StreamSubscribers.WithLabelValues(b.name).Dec()
}

func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		b.deliver(s, v)
	}
}

func (b *Broadcaster[T]) deliver(s *Subscription[T], v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		// full: drop the oldest and retry
		select {
		case <-s.ch:
			metrics.StreamDropped.WithLabelValues(b.name).Inc()
		default:
		}
	}
}

func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription. Publish after Close is a no-op.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
		delete(b.subs, s)
		metrics.StreamSubscribers.WithLabelValues(b.name).Dec()
	}
	b.log.Debug("broadcaster closed", zap.String("stream", b.name))
}
