package repository

import (
	"github.com/faunawatch/backend/internal/db/models"
	"gorm.io/gorm"
)

// AnimalRepository defines operations for managing the animal roster
type AnimalRepository interface {
	Repository
	Create(animal *models.Animal) error
	GetByID(animalID string) (*models.Animal, error)
	Exists(animalID string) (bool, error)
	List(activeOnly bool) ([]models.Animal, error)
	ListActiveIDs() ([]string, error)
}

// animalRepository implements AnimalRepository
type animalRepository struct {
	BaseRepository
}

// NewAnimalRepository creates a new animal repository
func NewAnimalRepository(db *gorm.DB) AnimalRepository {
	return &animalRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new animal
func (r *animalRepository) Create(animal *models.Animal) error {
	err := r.GetDB().Create(animal).Error
	return r.handleError(err)
}

// GetByID retrieves an animal by its external identifier
func (r *animalRepository) GetByID(animalID string) (*models.Animal, error) {
	var animal models.Animal
	err := r.GetDB().Where("animal_id = ?", animalID).First(&animal).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return &animal, nil
}

// Exists reports whether an animal is known
func (r *animalRepository) Exists(animalID string) (bool, error) {
	var count int64
	err := r.GetDB().Model(&models.Animal{}).Where("animal_id = ?", animalID).Count(&count).Error
	if err != nil {
		return false, r.handleError(err)
	}
	return count > 0, nil
}

// List retrieves all animals, optionally restricted to active ones
func (r *animalRepository) List(activeOnly bool) ([]models.Animal, error) {
	var animals []models.Animal

	query := r.GetDB().Order("animal_id asc")
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	if err := query.Find(&animals).Error; err != nil {
		return nil, r.handleError(err)
	}
	return animals, nil
}

// ListActiveIDs retrieves the identifiers of all active animals, for the
// scheduler's per-animal sweep
func (r *animalRepository) ListActiveIDs() ([]string, error) {
	var ids []string
	err := r.GetDB().Model(&models.Animal{}).
		Where("active = ?", true).
		Order("animal_id asc").
		Pluck("animal_id", &ids).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return ids, nil
}
