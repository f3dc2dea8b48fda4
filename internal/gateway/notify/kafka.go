package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// message is the wire format published per notification. EventID is a
// fresh uuid so downstream consumers can deduplicate redeliveries.
type message struct {
	EventID   string         `json:"event_id"`
	UserID    int64          `json:"user_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// KafkaGateway publishes notification events to a Kafka topic.
type KafkaGateway struct {
	producer sarama.SyncProducer
	topic    string
	failures prometheus.Counter
	now      func() time.Time
}

// NewKafkaGateway creates a Kafka-backed notification gateway. Returns nil
// when no brokers are configured, which disables publishing.
func NewKafkaGateway(brokers []string, topic string, failures prometheus.Counter) (*KafkaGateway, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return newKafkaGateway(producer, topic, failures), nil
}

func newKafkaGateway(producer sarama.SyncProducer, topic string, failures prometheus.Counter) *KafkaGateway {
	return &KafkaGateway{
		producer: producer,
		topic:    topic,
		failures: failures,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Notify publishes one notification event, keyed by user id.
func (g *KafkaGateway) Notify(_ context.Context, userID int64, eventType string, payload map[string]any) error {
	if g == nil {
		return nil
	}

	value, err := json.Marshal(message{
		EventID:   uuid.NewString(),
		UserID:    userID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: g.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, _, err = g.producer.SendMessage(&sarama.ProducerMessage{
		Topic: g.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", userID)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		if g.failures != nil {
			g.failures.Inc()
		}
		return fmt.Errorf("publish notification %s: %w", eventType, err)
	}
	return nil
}

// Close shuts down the underlying producer.
func (g *KafkaGateway) Close() error {
	if g == nil {
		return nil
	}
	return g.producer.Close()
}
