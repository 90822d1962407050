package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/metrics"
	"github.com/ariefcatur/go-food-court/internal/orders"
)

// MessageWriter is the part of *kafka.Writer the client needs. It must be
// safe for concurrent use.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Dialer opens a new writer connection.
type Dialer func(brokers []string) MessageWriter

// Client is the shared transport handle. The composition root builds one,
// passes it to producers and closes it on shutdown. The underlying writer is
// created lazily and reused by every publish call.
type Client struct {
	brokers []string
	dial    Dialer
	log     *zap.Logger

	mu     sync.Mutex
	w      MessageWriter
	closed bool
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

func WithDialer(d Dialer) Option { return func(c *Client) { c.dial = d } }

func NewClient(brokers []string, opts ...Option) (*Client, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	c := &Client{brokers: brokers, dial: DialWriter}
	for _, o := range opts {
		o(c)
	}
	c.log = logger.OrNop(c.log)
	return c, nil
}

// DialWriter is the default Dialer. Writes are synchronous so callers see
// failures, and the writer does not retry on its own: the client owns the
// retry policy.
func DialWriter(brokers []string) MessageWriter {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               KeyBalancer(),
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            1,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: false,
	}
}

// KeyBalancer places keyed messages with orders.PartitionFor over the live
// partition list; unkeyed messages are spread round-robin.
func KeyBalancer() kafka.Balancer {
	rr := &kafka.RoundRobin{}
	return kafka.BalancerFunc(func(msg kafka.Message, partitions ...int) int {
		if len(msg.Key) == 0 {
			return rr.Balance(msg, partitions...)
		}
		return partitions[orders.PartitionFor(string(msg.Key), len(partitions))]
	})
}

func (c *Client) writer() (MessageWriter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if c.w == nil {
		c.w = c.dial(c.brokers)
		c.log.Debug("kafka writer connected", zap.Strings("brokers", c.brokers))
	}
	return c.w, nil
}

// drop tears down stale if it is still the current writer. Concurrent
// callers that failed on the same writer reconnect only once.
func (c *Client) drop(stale MessageWriter) {
	c.mu.Lock()
	if c.w != stale {
		c.mu.Unlock()
		return
	}
	c.w = nil
	c.mu.Unlock()
	if err := stale.Close(); err != nil {
		c.log.Debug("close stale kafka writer", zap.Error(err))
	}
}

// Publish writes msgs. A recoverable failure triggers exactly one
// teardown, reconnect and retry; anything else is returned as is.
func (c *Client) Publish(ctx context.Context, msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	topic := msgs[0].Topic

	w, err := c.writer()
	if err != nil {
		return err
	}
	err = w.WriteMessages(ctx, msgs...)
	if err == nil {
		metrics.RecordPublish(topic, nil)
		return nil
	}
	if !IsRecoverable(err) {
		metrics.RecordPublish(topic, err)
		return &TransportError{Op: "publish", Topic: topic, Recoverable: false, Err: err}
	}

	c.log.Warn("kafka publish failed, reconnecting",
		zap.String("topic", topic),
		zap.Error(err),
	)
	metrics.PublishRetries.Inc()
	c.drop(w)

	w, err = c.writer()
	if err != nil {
		return err
	}
	err = w.WriteMessages(ctx, msgs...)
	metrics.RecordPublish(topic, err)
	if err != nil {
		return &TransportError{Op: "publish", Topic: topic, Recoverable: true, Err: err}
	}
	return nil
}

// Disconnect closes the current connection. The next Publish reconnects.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	w := c.w
	c.w = nil
	c.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

// Close disconnects and rejects further publishes.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.Disconnect()
}
