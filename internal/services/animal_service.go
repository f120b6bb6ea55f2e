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

// AnimalService handles the monitored-animal roster.
type AnimalService struct {
	logger     *utils.Logger
	animalRepo repository.AnimalRepository
	eventRepo  repository.EventRepository
}

// NewAnimalService creates a new animal service
func NewAnimalService(database *db.Database, logger *utils.Logger) *AnimalService {
	repoFactory := repository.NewRepositoryFactory(database.DB)
	return &AnimalService{
		logger:     logger.Named("animal_service"),
		animalRepo: repoFactory.Animal(),
		eventRepo:  repoFactory.Event(),
	}
}

// Create registers an animal for monitoring
func (s *AnimalService) Create(animal *models.Animal) error {
	if animal.AnimalID == "" {
		return fmt.Errorf("animal ID is required: %w", utils.ErrBadRequest)
	}
	if animal.Name == "" {
		return fmt.Errorf("animal name is required: %w", utils.ErrBadRequest)
	}
	if animal.Species == "" {
		return fmt.Errorf("animal species is required: %w", utils.ErrBadRequest)
	}

	exists, err := s.animalRepo.Exists(animal.AnimalID)
	if err != nil {
		s.logger.Error("Failed to check animal existence",
			zap.String("animal_id", animal.AnimalID), zap.Error(err))
		return utils.ErrInternal
	}
	if exists {
		return fmt.Errorf("animal %s: %w", animal.AnimalID, utils.ErrConflict)
	}

	if err := s.animalRepo.Create(animal); err != nil {
		s.logger.Error("Failed to create animal",
			zap.String("animal_id", animal.AnimalID), zap.Error(err))
		return utils.ErrInternal
	}

	s.logger.Info("Animal registered",
		zap.String("animal_id", animal.AnimalID),
		zap.String("species", animal.Species))

	return nil
}

// GetByID retrieves one animal
func (s *AnimalService) GetByID(animalID string) (*models.Animal, error) {
	animal, err := s.animalRepo.GetByID(animalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("animal %s: %w", animalID, utils.ErrNotFound)
		}
		s.logger.Error("Failed to get animal",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, utils.ErrInternal
	}
	return animal, nil
}

// List returns the roster, optionally only animals still monitored
func (s *AnimalService) List(activeOnly bool) ([]models.Animal, error) {
	animals, err := s.animalRepo.List(activeOnly)
	if err != nil {
		s.logger.Error("Failed to list animals", zap.Error(err))
		return nil, utils.ErrInternal
	}
	return animals, nil
}

// CurrentBehavior returns an animal's most recent observation, or nil when
// nothing has been recorded yet.
func (s *AnimalService) CurrentBehavior(animalID string) (*models.BehaviorEvent, error) {
	exists, err := s.animalRepo.Exists(animalID)
	if err != nil {
		s.logger.Error("Failed to check animal existence",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, utils.ErrInternal
	}
	if !exists {
		return nil, fmt.Errorf("animal %s: %w", animalID, utils.ErrNotFound)
	}

	event, err := s.eventRepo.GetLatest(animalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		s.logger.Error("Failed to get latest behavior",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, utils.ErrInternal
	}
	return event, nil
}
