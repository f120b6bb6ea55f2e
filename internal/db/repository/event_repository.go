package repository

import (
	"time"

	"github.com/faunawatch/backend/internal/db/models"
	"gorm.io/gorm"
)

// EventRepository defines operations for the append-only behavior event store
type EventRepository interface {
	Repository
	Insert(event *models.BehaviorEvent) error
	InsertBatch(events []models.BehaviorEvent) error
	GetLatest(animalID string) (*models.BehaviorEvent, error)
	// GetByAnimalInRange returns events with ts in [start, end), ascending.
	GetByAnimalInRange(animalID string, start, end time.Time) ([]models.BehaviorEvent, error)
	// CountByBehaviorInRange counts events for one behavior with ts in
	// [start, end] inclusive, matching the rule engine's "up to and including
	// the triggering event" window.
	CountByBehaviorInRange(animalID string, behavior models.Behavior, start, end time.Time) (int64, error)
	// DeleteByAnimal removes all events for an animal. Bulk test-data resets
	// only; production rows are append-only.
	DeleteByAnimal(animalID string) error
}

// eventRepository implements EventRepository
type eventRepository struct {
	BaseRepository
}

// NewEventRepository creates a new behavior event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Insert inserts a single behavior event
func (r *eventRepository) Insert(event *models.BehaviorEvent) error {
	err := r.GetDB().Create(event).Error
	return r.handleError(err)
}

// InsertBatch inserts multiple behavior events in a batch
func (r *eventRepository) InsertBatch(events []models.BehaviorEvent) error {
	// Use a transaction for batches to ensure atomicity
	tx := r.GetDB().Begin()
	if tx.Error != nil {
		return r.handleError(tx.Error)
	}

	if err := tx.CreateInBatches(events, 100).Error; err != nil {
		tx.Rollback()
		return r.handleError(err)
	}

	return r.handleError(tx.Commit().Error)
}

// GetLatest retrieves the most recent event for an animal
func (r *eventRepository) GetLatest(animalID string) (*models.BehaviorEvent, error) {
	var event models.BehaviorEvent
	err := r.GetDB().Where("animal_id = ?", animalID).
		Order("ts desc").
		Limit(1).
		First(&event).Error

	if err != nil {
		return nil, r.handleError(err)
	}

	return &event, nil
}

// GetByAnimalInRange retrieves events for an animal within [start, end)
func (r *eventRepository) GetByAnimalInRange(animalID string, start, end time.Time) ([]models.BehaviorEvent, error) {
	var events []models.BehaviorEvent

	err := r.GetDB().Where("animal_id = ? AND ts >= ? AND ts < ?", animalID, start, end).
		Order("ts asc").
		Find(&events).Error
	if err != nil {
		return nil, r.handleError(err)
	}

	return events, nil
}

// CountByBehaviorInRange counts same-behavior events within [start, end]
func (r *eventRepository) CountByBehaviorInRange(animalID string, behavior models.Behavior, start, end time.Time) (int64, error) {
	var count int64

	err := r.GetDB().Model(&models.BehaviorEvent{}).
		Where("animal_id = ? AND behavior = ? AND ts >= ? AND ts <= ?", animalID, behavior, start, end).
		Count(&count).Error
	if err != nil {
		return 0, r.handleError(err)
	}

	return count, nil
}

// DeleteByAnimal removes all events for an animal
func (r *eventRepository) DeleteByAnimal(animalID string) error {
	result := r.GetDB().Where("animal_id = ?", animalID).Delete(&models.BehaviorEvent{})
	return r.handleError(result.Error)
}
