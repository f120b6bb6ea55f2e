package models

import (
	"time"
)

// Animal represents one monitored individual. AnimalID is the stable external
// identifier used by the vision pipeline (e.g. "a-001"), not a surrogate key.
type Animal struct {
	AnimalID  string    `gorm:"primaryKey;type:varchar(64)" json:"animal_id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Species   string    `gorm:"type:varchar(128)" json:"species"`
	Enclosure string    `gorm:"type:varchar(128)" json:"enclosure"`
	// No column default: gorm would skip a zero-value field on insert and an
	// animal registered inactive would come back active. Callers set Active
	// explicitly.
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name for Animal
func (Animal) TableName() string {
	return "animals"
}
