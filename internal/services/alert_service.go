package services

import (
	"errors"
	"fmt"

	"github.com/faunawatch/backend/internal/db"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/db/repository"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

// AlertService handles alert queries and acknowledgement.
type AlertService struct {
	logger    *utils.Logger
	alertRepo repository.AlertRepository
	notifier  *NotificationService
}

// NewAlertService creates a new alert service. Notifier may be nil.
func NewAlertService(database *db.Database, notifier *NotificationService, logger *utils.Logger) *AlertService {
	repoFactory := repository.NewRepositoryFactory(database.DB)
	return &AlertService{
		logger:    logger.Named("alert_service"),
		alertRepo: repoFactory.Alert(),
		notifier:  notifier,
	}
}

// GetByID retrieves one alert.
func (s *AlertService) GetByID(alertID string) (*models.Alert, error) {
	alert, err := s.alertRepo.GetByID(alertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("alert %s: %w", alertID, utils.ErrNotFound)
		}
		s.logger.Error("Failed to get alert", zap.String("alert_id", alertID), zap.Error(err))
		return nil, utils.ErrInternal
	}
	return alert, nil
}

// List returns alerts newest first, optionally filtered by animal and state.
func (s *AlertService) List(animalID string, state models.AlertState, offset, limit int) ([]models.Alert, int64, error) {
	if state != "" && !state.Valid() {
		return nil, 0, fmt.Errorf("invalid alert state filter %q: %w", state, utils.ErrBadRequest)
	}

	alerts, total, err := s.alertRepo.List(animalID, state, offset, limit)
	if err != nil {
		s.logger.Error("Failed to list alerts",
			zap.String("animal_id", animalID),
			zap.String("state", string(state)),
			zap.Error(err))
		return nil, 0, utils.ErrInternal
	}
	return alerts, total, nil
}

// Acknowledge closes one open alert. Acknowledging an already closed alert
// is an error so double-acks surface instead of silently passing.
func (s *AlertService) Acknowledge(alertID, ackBy string) (*models.Alert, error) {
	if ackBy == "" {
		return nil, fmt.Errorf("acknowledger identity is required: %w", utils.ErrBadRequest)
	}

	if err := s.alertRepo.Acknowledge(alertID, ackBy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("alert %s not found or already closed: %w", alertID, utils.ErrNotFound)
		}
		s.logger.Error("Failed to acknowledge alert",
			zap.String("alert_id", alertID), zap.Error(err))
		return nil, utils.ErrInternal
	}

	alert, err := s.alertRepo.GetByID(alertID)
	if err != nil {
		s.logger.Error("Failed to reload acknowledged alert",
			zap.String("alert_id", alertID), zap.Error(err))
		return nil, utils.ErrInternal
	}

	if s.notifier != nil {
		s.notifier.NotifyTopic(alert.AnimalID, NotificationTypeAlert, alert)
	}

	s.logger.Info("Alert acknowledged",
		zap.String("alert_id", alertID),
		zap.String("ack_by", ackBy))

	return alert, nil
}

// AcknowledgeBulk closes every listed alert that is still open and returns
// how many actually closed. IDs that are unknown or already closed are
// skipped, not errors; bulk ack is a cleanup tool.
func (s *AlertService) AcknowledgeBulk(alertIDs []string, ackBy string) (int64, error) {
	if ackBy == "" {
		return 0, fmt.Errorf("acknowledger identity is required: %w", utils.ErrBadRequest)
	}
	if len(alertIDs) == 0 {
		return 0, fmt.Errorf("no alert IDs given: %w", utils.ErrBadRequest)
	}

	closed, err := s.alertRepo.AcknowledgeBulk(alertIDs, ackBy)
	if err != nil {
		s.logger.Error("Failed to bulk acknowledge alerts",
			zap.Int("requested", len(alertIDs)), zap.Error(err))
		return 0, utils.ErrInternal
	}

	s.logger.Info("Alerts bulk acknowledged",
		zap.Int("requested", len(alertIDs)),
		zap.Int64("closed", closed),
		zap.String("ack_by", ackBy))

	return closed, nil
}
