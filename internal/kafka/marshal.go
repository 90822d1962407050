package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-food-court/internal/orders"
)

// Decode memudahkan decode payload spesifik
func Decode[T any](m kafka.Message) (T, error) {
	var t T
	if err := json.Unmarshal(m.Value, &t); err != nil {
		return t, fmt.Errorf("decode %s message at offset %d: %w", m.Topic, m.Offset, err)
	}
	return t, nil
}

// JSONMessage builds a keyed JSON message carrying the content-type and
// event-type headers.
func JSONMessage(topic string, key []byte, v any, eventType string) (kafka.Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   key,
		Value: b,
		Headers: []kafka.Header{
			{Key: orders.HeaderContentType, Value: []byte(orders.ContentTypeJSON)},
			{Key: orders.HeaderEventType, Value: []byte(eventType)},
		},
	}, nil
}

func Header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
