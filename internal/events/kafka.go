package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"infinite-experiment/logbook/internal/logging"
)

// KafkaConfig holds producer connection settings.
type KafkaConfig struct {
	BootstrapServers string
	Topic            string
	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
}

func (c KafkaConfig) configMap() *kafka.ConfigMap {
	cm := &kafka.ConfigMap{
		"bootstrap.servers":   c.BootstrapServers,
		"acks":                "all",
		"enable.idempotence":  true,
		"linger.ms":           5,
		"request.timeout.ms":  30000,
		"delivery.timeout.ms": 120000,
	}
	if c.SecurityProtocol != "" {
		_ = cm.SetKey("security.protocol", c.SecurityProtocol)
	}
	if c.SASLMechanism != "" {
		_ = cm.SetKey("sasl.mechanism", c.SASLMechanism)
		_ = cm.SetKey("sasl.username", c.SASLUsername)
		_ = cm.SetKey("sasl.password", c.SASLPassword)
	}
	return cm
}

// KafkaPublisher writes events to one topic, keyed by run id, and waits for
// the broker's delivery report before returning.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	mu       sync.Mutex
	closed   bool
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	p, err := kafka.NewProducer(cfg.configMap())
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	kp := &KafkaPublisher{producer: p, topic: cfg.Topic}
	go kp.logBackgroundEvents()

	logging.Info("Kafka publisher initialized", "topic", cfg.Topic, "servers", cfg.BootstrapServers)
	return kp, nil
}

// logBackgroundEvents drains the producer's general event channel. Delivery
// reports go to per-call channels and never show up here.
func (kp *KafkaPublisher) logBackgroundEvents() {
	for e := range kp.producer.Events() {
		if kerr, ok := e.(kafka.Error); ok {
			logging.Warn("Kafka producer error", "error", kerr.Error(), "code", kerr.Code().String())
		}
	}
}

func (kp *KafkaPublisher) Publish(ctx context.Context, event MetricsUpdated) error {
	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	kp.mu.Lock()
	if kp.closed {
		kp.mu.Unlock()
		return fmt.Errorf("publisher closed")
	}
	kp.mu.Unlock()

	deliveryChan := make(chan kafka.Event, 1)
	message := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &kp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.RunID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := kp.producer.Produce(message, deliveryChan); err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
		}
		logging.Debug("Event delivered",
			"type", event.Type,
			"run_id", event.RunID,
			"partition", m.TopicPartition.Partition,
			"offset", m.TopicPartition.Offset.String(),
		)
		return nil
	}
}

// Close flushes outstanding messages for up to ten seconds and shuts the
// producer down. Safe to call more than once.
func (kp *KafkaPublisher) Close() {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	if kp.closed {
		return
	}
	kp.closed = true

	if remaining := kp.producer.Flush(10000); remaining > 0 {
		logging.Warn("Kafka publisher closed with undelivered messages", "remaining", remaining)
	}
	kp.producer.Close()
}
