package kafka

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/metrics"
)

// Handler processes one message. A returned error is logged and the
// message is skipped; it never stops the partition loop.
type Handler func(ctx context.Context, m kafka.Message) error

// RebalanceFunc receives this member's assignment, per topic, sorted
// ascending, every time the group generation changes.
type RebalanceFunc func(assigned map[string][]int)

// PartitionReader reads one partition. *kafka.Reader satisfies it.
type PartitionReader interface {
	SetOffset(offset int64) error
	FetchMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type CommitFunc func(topic string, partition int, offset int64) error

type GroupConfig struct {
	Brokers     []string
	GroupID     string
	Topics      []string
	StartOffset int64 // kafka.FirstOffset or kafka.LastOffset; zero means LastOffset
	OnRebalance RebalanceFunc
	Logger      *zap.Logger
}

// GroupConsumer runs one consumer-group membership. The broker assigns
// partitions; each assigned partition is consumed by its own goroutine, one
// message at a time, so order holds within a partition while partitions
// progress concurrently.
type GroupConsumer struct {
	cfg       GroupConfig
	log       *zap.Logger
	newReader func(topic string, partition int) PartitionReader

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewGroupConsumer(cfg GroupConfig) (*GroupConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.GroupID == "" {
		return nil, errors.New("consumer group id is required")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("topics is required")
	}
	if cfg.StartOffset == 0 {
		cfg.StartOffset = kafka.LastOffset
	}
	c := &GroupConsumer{cfg: cfg, log: logger.OrNop(cfg.Logger)}
	c.newReader = func(topic string, partition int) PartitionReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:   cfg.Brokers,
			Topic:     topic,
			Partition: partition,
			MinBytes:  1,
			MaxBytes:  10e6,
		})
	}
	return c, nil
}

// Run joins the group and consumes until ctx is cancelled or Close is
// called. In-flight messages finish before Run returns.
func (c *GroupConsumer) Run(ctx context.Context, h Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		cancel()
		return errors.New("consumer already started")
	}
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()
	defer close(c.done)
	defer cancel()

	sugar := c.log.Sugar()
	group, err := kafka.NewConsumerGroup(kafka.ConsumerGroupConfig{
		ID:          c.cfg.GroupID,
		Brokers:     c.cfg.Brokers,
		Topics:      c.cfg.Topics,
		StartOffset: c.cfg.StartOffset,
		ErrorLogger: kafka.LoggerFunc(sugar.Errorf),
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	defer group.Close()

	for {
		gen, err := group.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, kafka.ErrGroupClosed) {
				return nil
			}
			c.log.Warn("join consumer group", zap.String("group", c.cfg.GroupID), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		assigned := Assigned(gen.Assignments)
		metrics.Rebalances.WithLabelValues(c.cfg.GroupID).Inc()
		c.log.Info("partitions assigned",
			zap.String("group", c.cfg.GroupID),
			zap.Int32("generation", gen.ID),
			zap.Any("assigned", assigned),
		)
		if c.cfg.OnRebalance != nil {
			c.cfg.OnRebalance(assigned)
		}

		commit := func(topic string, partition int, offset int64) error {
			return gen.CommitOffsets(map[string]map[int]int64{topic: {partition: offset}})
		}
		for topic, list := range gen.Assignments {
			for _, a := range list {
				topic, partition, offset := topic, a.ID, a.Offset
				wg.Add(1)
				gen.Start(func(genCtx context.Context) {
					defer wg.Done()
					r := c.newReader(topic, partition)
					defer r.Close()
					if err := r.SetOffset(offset); err != nil {
						c.log.Error("seek partition", zap.String("topic", topic), zap.Int("partition", partition), zap.Error(err))
						return
					}
					c.consumePartition(genCtx, r, commit, h)
				})
			}
		}
	}
}

func (c *GroupConsumer) consumePartition(ctx context.Context, r PartitionReader, commit CommitFunc, h Handler) {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("fetch message", zap.String("group", c.cfg.GroupID), zap.Error(err))
			}
			return
		}

		metrics.MessagesConsumed.WithLabelValues(c.cfg.GroupID, m.Topic).Inc()
		if err := h(ctx, m); err != nil {
			metrics.ConsumerErrors.WithLabelValues(c.cfg.GroupID).Inc()
			c.log.Error("handle message",
				zap.String("group", c.cfg.GroupID),
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}
		// commit on success and on skip: a malformed message stays skipped
		if err := commit(m.Topic, m.Partition, m.Offset+1); err != nil {
			c.log.Warn("commit offset", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// Close stops polling and waits for in-flight messages.
func (c *GroupConsumer) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Assigned flattens a generation's assignment into sorted partition ids.
func Assigned(assignments map[string][]kafka.PartitionAssignment) map[string][]int {
	out := make(map[string][]int, len(assignments))
	for topic, list := range assignments {
		ids := make([]int, 0, len(list))
		for _, a := range list {
			ids = append(ids, a.ID)
		}
		slices.Sort(ids)
		out[topic] = ids
	}
	return out
}
