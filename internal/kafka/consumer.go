package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

// MessageHandler processes a single message from one of the stream topics.
// Returning an error routes the message to the topic's dead letter queue.
type MessageHandler func(msg *kafka.Message) error

// Consumer reads the behavior and position stream topics and dispatches each
// message to its registered handlers. Offsets are auto-committed, so handlers
// must tolerate redelivery.
type Consumer struct {
	consumer    *kafka.Consumer
	logger      *utils.Logger
	handlers    map[string][]MessageHandler
	dlqProducer *Producer
	stop        chan struct{}
	done        chan struct{}
	running     bool
}

// NewConsumer creates a consumer in the configured group. Handlers are
// registered before Start; the consumer subscribes only to topics that have
// at least one.
func NewConsumer(cfg *config.KafkaConfig, logger *utils.Logger, dlqProducer *Producer) (*Consumer, error) {
	cm := &kafka.ConfigMap{
		"bootstrap.servers":       cfg.Brokers,
		"group.id":                cfg.ConsumerGroup,
		"auto.offset.reset":       "earliest",
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
	}
	if err := applySecurity(cm, cfg); err != nil {
		return nil, err
	}

	consumer, err := kafka.NewConsumer(cm)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &Consumer{
		consumer:    consumer,
		logger:      logger.Named("kafka_consumer"),
		handlers:    make(map[string][]MessageHandler),
		dlqProducer: dlqProducer,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}, nil
}

// RegisterHandler adds a handler for a topic. Multiple handlers on the same
// topic run in registration order.
func (c *Consumer) RegisterHandler(topic string, handler MessageHandler) {
	c.handlers[topic] = append(c.handlers[topic], handler)
	c.logger.Info("Registered handler for topic", zap.String("topic", topic))
}

// Start subscribes to every topic with a registered handler and begins the
// read loop. It returns once the subscription is established.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running {
		return fmt.Errorf("consumer is already running")
	}

	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		return fmt.Errorf("no topics registered")
	}

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topics: %w", err)
	}
	c.logger.Info("Subscribed to topics", zap.Strings("topics", topics))

	c.running = true
	go c.readLoop(ctx)

	return nil
}

func (c *Consumer) readLoop(ctx context.Context) {
	defer close(c.done)
	defer func() {
		c.running = false
		_ = c.consumer.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Context canceled, stopping consumer")
			return

		case <-c.stop:
			c.logger.Info("Stopping consumer")
			return

		default:
			msg, err := c.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				if kerr, ok := err.(kafka.Error); ok && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				c.logger.Error("Error reading message from Kafka", zap.Error(err))
				continue
			}
			c.dispatch(msg)
		}
	}
}

// dispatch runs every handler registered for the message topic. A failing
// handler does not stop the rest; its message is copied to the dead letter
// queue with the error recorded in the headers.
func (c *Consumer) dispatch(msg *kafka.Message) {
	if msg == nil || msg.TopicPartition.Topic == nil {
		return
	}

	topic := *msg.TopicPartition.Topic
	handlers := c.handlers[topic]
	if len(handlers) == 0 {
		c.logger.Warn("No handlers registered for topic", zap.String("topic", topic))
		return
	}

	c.logger.Debug("Processing message",
		zap.String("topic", topic),
		zap.Int32("partition", msg.TopicPartition.Partition),
		zap.Int64("offset", int64(msg.TopicPartition.Offset)),
	)

	for i, handler := range handlers {
		if err := handler(msg); err != nil {
			c.logger.Error("Handler failed to process message",
				zap.String("topic", topic),
				zap.Int("handler_index", i),
				zap.Error(err),
			)
			c.deadLetter(topic, msg, err)
		}
	}
}

func (c *Consumer) deadLetter(topic string, msg *kafka.Message, cause error) {
	if c.dlqProducer == nil {
		return
	}

	dlqTopic := fmt.Sprintf("%s.dlq", topic)
	dlqMessage := &Message{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Timestamp: time.Now(),
		Headers: map[string]string{
			"error":          cause.Error(),
			"original_topic": topic,
		},
	}

	if err := c.dlqProducer.Produce(dlqTopic, dlqMessage); err != nil {
		c.logger.Error("Failed to send message to DLQ",
			zap.String("dlq_topic", dlqTopic),
			zap.Error(err),
		)
	}
}

// Stop halts the read loop and waits for it to close the underlying handle.
func (c *Consumer) Stop() {
	if c.running {
		close(c.stop)
		<-c.done
	}
	c.logger.Info("Kafka consumer stopped")
}

// Close stops the consumer. If it was never started the librdkafka handle is
// released directly.
func (c *Consumer) Close() error {
	if c.running {
		c.Stop()
		return nil
	}
	return c.consumer.Close()
}
