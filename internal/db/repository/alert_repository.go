package repository

import (
	"time"

	"github.com/faunawatch/backend/internal/db/models"
	"gorm.io/gorm"
)

// AlertRepository defines operations for the alert store
type AlertRepository interface {
	Repository
	Insert(alert *models.Alert) error
	GetByID(alertID string) (*models.Alert, error)
	// HasOpenAlert reports whether an open alert of the given type exists for
	// the animal with ts in [since, until]. This is the anti-spam lookup.
	HasOpenAlert(animalID string, alertType models.AlertType, since, until time.Time) (bool, error)
	// GetByAnimalInRange returns alerts with ts in [start, end), ascending.
	GetByAnimalInRange(animalID string, start, end time.Time) ([]models.Alert, error)
	List(animalID string, state models.AlertState, offset, limit int) ([]models.Alert, int64, error)
	// Acknowledge transitions an open alert to closed. Closed alerts are
	// never reopened, so acknowledging twice reports ErrNotFound.
	Acknowledge(alertID string, ackBy string) error
	AcknowledgeBulk(alertIDs []string, ackBy string) (int64, error)
}

// alertRepository implements AlertRepository
type alertRepository struct {
	BaseRepository
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Insert inserts a new alert
func (r *alertRepository) Insert(alert *models.Alert) error {
	err := r.GetDB().Create(alert).Error
	return r.handleError(err)
}

// GetByID retrieves an alert by its identifier
func (r *alertRepository) GetByID(alertID string) (*models.Alert, error) {
	var alert models.Alert
	err := r.GetDB().Where("alert_id = ?", alertID).First(&alert).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return &alert, nil
}

// HasOpenAlert performs the anti-spam duplicate lookup
func (r *alertRepository) HasOpenAlert(animalID string, alertType models.AlertType, since, until time.Time) (bool, error) {
	var count int64

	err := r.GetDB().Model(&models.Alert{}).
		Where("animal_id = ? AND type = ? AND state = ? AND ts >= ? AND ts <= ?",
			animalID, alertType, models.AlertStateOpen, since, until).
		Count(&count).Error
	if err != nil {
		return false, r.handleError(err)
	}

	return count > 0, nil
}

// GetByAnimalInRange retrieves alerts for an animal within [start, end)
func (r *alertRepository) GetByAnimalInRange(animalID string, start, end time.Time) ([]models.Alert, error) {
	var alerts []models.Alert

	err := r.GetDB().Where("animal_id = ? AND ts >= ? AND ts < ?", animalID, start, end).
		Order("ts asc").
		Find(&alerts).Error
	if err != nil {
		return nil, r.handleError(err)
	}

	return alerts, nil
}

// List retrieves alerts, optionally filtered by animal and state, newest first
func (r *alertRepository) List(animalID string, state models.AlertState, offset, limit int) ([]models.Alert, int64, error) {
	query := r.GetDB().Model(&models.Alert{})

	if animalID != "" {
		query = query.Where("animal_id = ?", animalID)
	}
	if state != "" {
		query = query.Where("state = ?", state)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.handleError(err)
	}

	var alerts []models.Alert
	err := query.Order("ts desc").Offset(offset).Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, 0, r.handleError(err)
	}

	return alerts, total, nil
}

// Acknowledge closes an open alert
func (r *alertRepository) Acknowledge(alertID string, ackBy string) error {
	result := r.GetDB().Model(&models.Alert{}).
		Where("alert_id = ? AND state = ?", alertID, models.AlertStateOpen).
		Updates(map[string]interface{}{
			"state":    models.AlertStateClosed,
			"ack_by":   ackBy,
			"ack_time": time.Now(),
		})

	if result.Error != nil {
		return r.handleError(result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// AcknowledgeBulk closes every listed alert that is still open and returns
// how many rows changed
func (r *alertRepository) AcknowledgeBulk(alertIDs []string, ackBy string) (int64, error) {
	if len(alertIDs) == 0 {
		return 0, nil
	}

	result := r.GetDB().Model(&models.Alert{}).
		Where("alert_id IN ? AND state = ?", alertIDs, models.AlertStateOpen).
		Updates(map[string]interface{}{
			"state":    models.AlertStateClosed,
			"ack_by":   ackBy,
			"ack_time": time.Now(),
		})

	if result.Error != nil {
		return 0, r.handleError(result.Error)
	}

	return result.RowsAffected, nil
}
