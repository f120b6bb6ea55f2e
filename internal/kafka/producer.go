package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

// Message is the broker-agnostic envelope services hand to the producer.
// Value is JSON-marshaled at produce time, so callers pass domain structs
// (behavior events, welfare alerts) directly.
type Message struct {
	Key       string
	Value     interface{}
	Timestamp time.Time
	Headers   map[string]string
}

// Producer publishes welfare pipeline messages. Delivery is asynchronous;
// acks=all keeps alerts from being lost on a leader failover.
type Producer struct {
	producer *kafka.Producer
	logger   *utils.Logger
}

// NewProducer connects a producer to the configured brokers and starts the
// delivery report watcher.
func NewProducer(cfg *config.KafkaConfig, logger *utils.Logger) (*Producer, error) {
	cm := &kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         "faunawatch-producer",
		"acks":              "all",
	}
	if err := applySecurity(cm, cfg); err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(cm)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	p := &Producer{
		producer: producer,
		logger:   logger.Named("kafka_producer"),
	}
	go p.watchDeliveryReports()

	return p, nil
}

// watchDeliveryReports drains the producer event channel. Failed deliveries
// are logged only; the source record is already persisted, so a dropped
// fan-out message is not data loss.
func (p *Producer) watchDeliveryReports() {
	for e := range p.producer.Events() {
		m, ok := e.(*kafka.Message)
		if !ok {
			continue
		}
		if m.TopicPartition.Error != nil {
			p.logger.Error("Message delivery failed",
				zap.String("topic", *m.TopicPartition.Topic),
				zap.Error(m.TopicPartition.Error),
			)
			continue
		}
		p.logger.Debug("Message delivered",
			zap.String("topic", *m.TopicPartition.Topic),
			zap.Int32("partition", m.TopicPartition.Partition),
			zap.Int64("offset", int64(m.TopicPartition.Offset)),
		)
	}
}

// Produce enqueues a message for the given topic.
func (p *Producer) Produce(topic string, message *Message) error {
	kafkaMessage, err := toKafkaMessage(topic, message)
	if err != nil {
		return err
	}

	p.logger.Debug("Producing message",
		zap.String("topic", topic),
		zap.String("key", message.Key),
	)

	if err := p.producer.Produce(kafkaMessage, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

func toKafkaMessage(topic string, message *Message) (*kafka.Message, error) {
	value, err := json.Marshal(message.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message value: %w", err)
	}

	km := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
		Timestamp:      message.Timestamp,
	}
	if message.Key != "" {
		km.Key = []byte(message.Key)
	}
	for k, v := range message.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return km, nil
}

// Close flushes outstanding messages and releases the underlying producer.
func (p *Producer) Close() {
	if remaining := p.producer.Flush(5000); remaining > 0 {
		p.logger.Warn("Closing producer with undelivered messages", zap.Int("remaining", remaining))
	}
	p.producer.Close()
	p.logger.Info("Kafka producer closed")
}
