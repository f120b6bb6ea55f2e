package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

// Topics the engine produces to and consumes from.
const (
	// TopicBehaviorEvents carries classified behavior observations from the
	// vision pipeline.
	TopicBehaviorEvents = "behavior-events"
	// TopicPositionSamples carries raw per-frame tracker positions.
	TopicPositionSamples = "position-samples"
	// TopicWelfareAlerts carries alerts raised by the welfare rules.
	TopicWelfareAlerts = "welfare-alerts"
)

// Manager owns the producers and consumers of the welfare pipeline. Handlers
// for the stream topics are registered before Start; a second producer feeds
// the per-topic dead letter queues.
type Manager struct {
	config           *config.KafkaConfig
	logger           *utils.Logger
	mainProducer     *Producer
	dlqProducer      *Producer
	consumers        map[string]*Consumer
	consumerCtx      context.Context
	consumerCancel   context.CancelFunc
	wg               sync.WaitGroup
	mu               sync.Mutex
	isRunning        bool
	messageProcessed chan struct{}
}

// NewManager connects both producers. Consumers are created lazily through
// AddConsumer so handler registration stays explicit.
func NewManager(cfg *config.KafkaConfig, logger *utils.Logger) (*Manager, error) {
	kafkaLogger := logger.Named("kafka_manager")

	mainProducer, err := NewProducer(cfg, kafkaLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create main producer: %w", err)
	}

	dlqProducer, err := NewProducer(cfg, kafkaLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:           cfg,
		logger:           kafkaLogger,
		mainProducer:     mainProducer,
		dlqProducer:      dlqProducer,
		consumers:        make(map[string]*Consumer),
		consumerCtx:      ctx,
		consumerCancel:   cancel,
		messageProcessed: make(chan struct{}, 100),
	}, nil
}

// Start launches every registered consumer and the throughput monitor.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("kafka manager is already running")
	}

	for name, consumer := range m.consumers {
		m.logger.Info("Starting consumer", zap.String("name", name))
		if err := consumer.Start(m.consumerCtx); err != nil {
			m.logger.Error("Failed to start consumer",
				zap.String("name", name),
				zap.Error(err))
			m.stopAllConsumers()
			return fmt.Errorf("failed to start consumer %s: %w", name, err)
		}
	}

	m.wg.Add(1)
	go m.monitorProcessing()

	m.isRunning = true
	m.logger.Info("Kafka manager started")
	return nil
}

// AddConsumer registers a named consumer with its topic handlers. Consumers
// cannot be added once the manager is running.
func (m *Manager) AddConsumer(name string, topics []string, handlers map[string][]MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("cannot add consumer while manager is running")
	}

	if _, exists := m.consumers[name]; exists {
		return fmt.Errorf("consumer with name %s already exists", name)
	}

	consumer, err := NewConsumer(m.config, m.logger, m.dlqProducer)
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", name, err)
	}

	for topic, topicHandlers := range handlers {
		for _, handler := range topicHandlers {
			consumer.RegisterHandler(topic, m.wrapHandler(handler))
		}
	}

	m.consumers[name] = consumer
	m.logger.Info("Added consumer",
		zap.String("name", name),
		zap.Strings("topics", topics))

	return nil
}

// wrapHandler ticks the throughput counter after each handled message. The
// tick is dropped when the counter channel is full.
func (m *Manager) wrapHandler(handler MessageHandler) MessageHandler {
	return func(msg *kafka.Message) error {
		defer func() {
			select {
			case m.messageProcessed <- struct{}{}:
			default:
			}
		}()

		return handler(msg)
	}
}

// ProduceMessage sends a message to the specified topic.
func (m *Manager) ProduceMessage(topic string, key string, value interface{}, headers map[string]string) error {
	return m.mainProducer.Produce(topic, &Message{
		Key:       key,
		Value:     value,
		Timestamp: time.Now(),
		Headers:   headers,
	})
}

// ProduceWelfareAlert publishes a welfare alert, keyed by animal so one
// animal's alerts stay ordered within a partition.
func (m *Manager) ProduceWelfareAlert(animalID string, alert interface{}) error {
	return m.ProduceMessage(TopicWelfareAlerts, animalID, alert, nil)
}

// RegisterBehaviorEventHandler registers a handler for classified behavior
// observations
func (m *Manager) RegisterBehaviorEventHandler(name string, handler func(animalID, behavior string, ts time.Time, confidence float64) error) error {
	msgHandler := func(msg *kafka.Message) error {
		var event struct {
			AnimalID   string  `json:"animal_id"`
			Behavior   string  `json:"behavior"`
			TS         string  `json:"ts"`
			Confidence float64 `json:"confidence"`
		}

		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal behavior event: %w", err)
		}

		var ts time.Time
		if event.TS != "" {
			parsed, err := time.Parse(time.RFC3339, event.TS)
			if err != nil {
				return fmt.Errorf("failed to parse timestamp: %w", err)
			}
			ts = parsed
		}

		return handler(event.AnimalID, event.Behavior, ts, event.Confidence)
	}

	return m.AddConsumer(
		fmt.Sprintf("%s-behavior-events", name),
		[]string{TopicBehaviorEvents},
		map[string][]MessageHandler{
			TopicBehaviorEvents: {msgHandler},
		},
	)
}

// RegisterPositionSampleHandler registers a handler for raw tracker
// positions. A sample with both coordinates zero marks a detection gap.
func (m *Manager) RegisterPositionSampleHandler(name string, handler func(animalID, cameraID string, x, y float64, ts time.Time) error) error {
	msgHandler := func(msg *kafka.Message) error {
		var sample struct {
			AnimalID string  `json:"animal_id"`
			CameraID string  `json:"camera_id"`
			X        float64 `json:"x"`
			Y        float64 `json:"y"`
			TS       string  `json:"ts"`
		}

		if err := json.Unmarshal(msg.Value, &sample); err != nil {
			return fmt.Errorf("failed to unmarshal position sample: %w", err)
		}

		ts := time.Now()
		if sample.TS != "" {
			parsed, err := time.Parse(time.RFC3339, sample.TS)
			if err != nil {
				return fmt.Errorf("failed to parse timestamp: %w", err)
			}
			ts = parsed
		}

		return handler(sample.AnimalID, sample.CameraID, sample.X, sample.Y, ts)
	}

	return m.AddConsumer(
		fmt.Sprintf("%s-position-samples", name),
		[]string{TopicPositionSamples},
		map[string][]MessageHandler{
			TopicPositionSamples: {msgHandler},
		},
	)
}

// monitorProcessing logs how many stream messages were handled per minute.
func (m *Manager) monitorProcessing() {
	defer m.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	messageCount := 0

	for {
		select {
		case <-m.consumerCtx.Done():
			m.logger.Info("Message processing monitor stopped")
			return

		case <-m.messageProcessed:
			messageCount++

		case <-ticker.C:
			if messageCount > 0 {
				m.logger.Info("Message processing statistics",
					zap.Int("processed_messages", messageCount),
					zap.String("interval", "1m"))
				messageCount = 0
			}
		}
	}
}

func (m *Manager) stopAllConsumers() {
	for name, consumer := range m.consumers {
		m.logger.Info("Stopping consumer", zap.String("name", name))
		consumer.Stop()
	}
}

// Stop shuts down the consumers, waits for the monitor to exit and flushes
// both producers.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return fmt.Errorf("kafka manager is not running")
	}

	m.consumerCancel()
	m.stopAllConsumers()
	m.wg.Wait()

	m.mainProducer.Close()
	m.dlqProducer.Close()

	m.isRunning = false
	m.logger.Info("Kafka manager stopped")
	return nil
}

// IsRunning returns whether the Kafka manager is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRunning
}
