package repository

import (
	"errors"

	"gorm.io/gorm"
)

// Sentinel errors returned by all repositories. Services translate these
// into the user-facing error taxonomy.
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("record already exists")
	ErrDatabase     = errors.New("database error")
)

// Repository is the minimal contract shared by every store.
type Repository interface {
	GetDB() *gorm.DB
}

// BaseRepository carries the GORM handle and the error translation shared by
// the animal, event, alert and report stores.
type BaseRepository struct {
	db *gorm.DB
}

func NewBaseRepository(db *gorm.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB exposes the underlying handle for raw queries.
func (r *BaseRepository) GetDB() *gorm.DB {
	return r.db
}

// handleError maps GORM errors onto the repository sentinels. ErrConflict
// relies on TranslateError being set on the gorm config so driver duplicate
// key errors arrive as gorm.ErrDuplicatedKey. Anything else is a database
// failure.
func (r *BaseRepository) handleError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return ErrDatabase
}
