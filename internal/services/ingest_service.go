package services

import (
	"fmt"
	"time"

	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/db/repository"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

// AlertPublisher pushes a welfare alert onto the outbound stream.
type AlertPublisher interface {
	PublishAlert(alert *models.Alert) error
}

// IngestService accepts behavior observations, persists them and runs the
// welfare rules over the updated day.
type IngestService struct {
	logger     *utils.Logger
	cfg        *config.WelfareConfig
	loc        *time.Location
	animalRepo repository.AnimalRepository
	eventRepo  repository.EventRepository
	rules      *RuleService
	notifier   *NotificationService
	publisher  AlertPublisher
	now        func() time.Time
}

// NewIngestService creates an ingest service. Notifier and publisher may be
// nil; ingestion then persists and evaluates without fanning out.
func NewIngestService(
	database *db.Database,
	cfg *config.WelfareConfig,
	rules *RuleService,
	notifier *NotificationService,
	publisher AlertPublisher,
	logger *utils.Logger,
) (*IngestService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve welfare timezone: %w", err)
	}

	repoFactory := repository.NewRepositoryFactory(database.DB)
	return &IngestService{
		logger:     logger.Named("ingest_service"),
		cfg:        cfg,
		loc:        loc,
		animalRepo: repoFactory.Animal(),
		eventRepo:  repoFactory.Event(),
		rules:      rules,
		notifier:   notifier,
		publisher:  publisher,
		now:        time.Now,
	}, nil
}

// Ingest validates and persists one behavior observation, then evaluates the
// welfare rule for that behavior. A zero ts means "now". The returned alert
// is nil unless this observation tipped a rule over.
func (s *IngestService) Ingest(animalID string, behavior models.Behavior, ts time.Time, confidence float64) (*models.BehaviorEvent, *models.Alert, error) {
	if animalID == "" {
		return nil, nil, fmt.Errorf("animal ID is required: %w", utils.ErrBadRequest)
	}
	if !behavior.Valid() {
		return nil, nil, fmt.Errorf("unknown behavior %q: %w", behavior, utils.ErrBadRequest)
	}
	if confidence < 0 || confidence > 1 {
		return nil, nil, fmt.Errorf("confidence %.3f outside [0, 1]: %w", confidence, utils.ErrBadRequest)
	}

	exists, err := s.animalRepo.Exists(animalID)
	if err != nil {
		s.logger.Error("Failed to check animal existence",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, nil, utils.ErrInternal
	}
	if !exists {
		return nil, nil, fmt.Errorf("unknown animal %q: %w", animalID, utils.ErrBadRequest)
	}

	if ts.IsZero() {
		ts = s.now()
	}
	ts = ts.In(s.loc)

	event := &models.BehaviorEvent{
		AnimalID:   animalID,
		TS:         ts,
		Behavior:   behavior,
		Confidence: confidence,
	}
	if err := s.eventRepo.Insert(event); err != nil {
		s.logger.Error("Failed to insert behavior event",
			zap.String("animal_id", animalID),
			zap.String("behavior", string(behavior)),
			zap.Error(err))
		return nil, nil, utils.ErrInternal
	}

	if s.notifier != nil {
		s.notifier.NotifyTopic(animalID, NotificationTypeBehaviorUpdate, event)
	}

	alert, err := s.rules.Evaluate(animalID, behavior, ts)
	if err != nil {
		// The observation is already stored; a rule failure must not turn
		// into an ingest failure.
		s.logger.Error("Welfare rule evaluation failed",
			zap.String("animal_id", animalID),
			zap.String("behavior", string(behavior)),
			zap.Error(err))
		return event, nil, nil
	}

	if alert != nil {
		s.fanOutAlert(alert)
	}

	return event, alert, nil
}

func (s *IngestService) fanOutAlert(alert *models.Alert) {
	if s.notifier != nil {
		s.notifier.NotifyTopic(alert.AnimalID, NotificationTypeAlert, alert)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAlert(alert); err != nil {
			s.logger.Error("Failed to publish alert",
				zap.String("alert_id", alert.AlertID), zap.Error(err))
		}
	}
}
