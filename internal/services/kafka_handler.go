package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faunawatch/backend/internal/behavior"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/kafka"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

// kafkaAlertPublisher adapts the Kafka manager to the AlertPublisher
// interface the ingest service expects.
type kafkaAlertPublisher struct {
	manager *kafka.Manager
}

func (p *kafkaAlertPublisher) PublishAlert(alert *models.Alert) error {
	return p.manager.ProduceWelfareAlert(alert.AnimalID, alert)
}

// stateBehaviors maps fused movement states onto ethogram labels. Unknown is
// absent on purpose: detection gaps produce no observation.
var stateBehaviors = map[behavior.State]models.Behavior{
	behavior.StatePacing: models.BehaviorStereotypy,
	behavior.StateMoving: models.BehaviorLocomotion,
	behavior.StateStill:  models.BehaviorResting,
}

// KafkaHandler consumes the inbound topics: classified behavior events feed
// straight into ingestion, raw position samples run through the movement
// classifiers first.
type KafkaHandler struct {
	logger     *utils.Logger
	manager    *kafka.Manager
	ingest     *IngestService
	registry   *behavior.Registry
	mu         sync.Mutex
	lastStates map[string]behavior.State
}

// NewKafkaHandler creates a new Kafka handler
func NewKafkaHandler(
	logger *utils.Logger,
	manager *kafka.Manager,
	ingest *IngestService,
	registry *behavior.Registry,
) *KafkaHandler {
	return &KafkaHandler{
		logger:     logger.Named("kafka_handler"),
		manager:    manager,
		ingest:     ingest,
		registry:   registry,
		lastStates: make(map[string]behavior.State),
	}
}

// Initialize registers the topic handlers. Must run before the manager
// starts.
func (h *KafkaHandler) Initialize(ctx context.Context) error {
	if err := h.manager.RegisterBehaviorEventHandler("welfare", h.handleBehaviorEvent); err != nil {
		return fmt.Errorf("failed to register behavior event handler: %w", err)
	}

	if err := h.manager.RegisterPositionSampleHandler("welfare", h.handlePositionSample); err != nil {
		return fmt.Errorf("failed to register position sample handler: %w", err)
	}

	h.logger.Info("Kafka handlers initialized")
	return nil
}

// handleBehaviorEvent ingests one classified observation from the stream.
func (h *KafkaHandler) handleBehaviorEvent(animalID, behaviorLabel string, ts time.Time, confidence float64) error {
	_, _, err := h.ingest.Ingest(animalID, models.Behavior(behaviorLabel), ts, confidence)
	if err != nil {
		h.logger.Warn("Rejected behavior event from stream",
			zap.String("animal_id", animalID),
			zap.String("behavior", behaviorLabel),
			zap.Error(err))
		return err
	}
	return nil
}

// handlePositionSample feeds one tracker position into the movement
// classifier and ingests a behavior observation whenever the animal's fused
// state settles on a new value.
func (h *KafkaHandler) handlePositionSample(animalID, cameraID string, x, y float64, ts time.Time) error {
	if animalID == "" || cameraID == "" {
		return fmt.Errorf("position sample missing animal or camera ID")
	}

	h.registry.Observe(animalID, cameraID, behavior.Point{X: x, Y: y}, ts)
	fused := h.registry.Fused(animalID)

	h.mu.Lock()
	last, seen := h.lastStates[animalID]
	changed := !seen || last != fused
	if changed {
		h.lastStates[animalID] = fused
	}
	h.mu.Unlock()

	if !changed {
		return nil
	}

	h.logger.Debug("Fused movement state changed",
		zap.String("animal_id", animalID),
		zap.String("state", string(fused)))

	mapped, ok := stateBehaviors[fused]
	if !ok {
		return nil
	}

	// Derived observations carry full confidence; the hysteresis already
	// filtered the jitter out.
	if _, _, err := h.ingest.Ingest(animalID, mapped, ts, 1.0); err != nil {
		h.logger.Warn("Failed to ingest derived behavior",
			zap.String("animal_id", animalID),
			zap.String("behavior", string(mapped)),
			zap.Error(err))
		return err
	}
	return nil
}
