package models

import (
	"time"
)

// Behavior is a discrete, ethogram-level behavior label produced by the
// upstream classification stage.
type Behavior string

const (
	BehaviorForaging   Behavior = "Foraging"
	BehaviorResting    Behavior = "Resting"
	BehaviorLocomotion Behavior = "Locomotion"
	BehaviorSocial     Behavior = "Social"
	BehaviorPlay       Behavior = "Play"
	BehaviorStereotypy Behavior = "Stereotypy"
)

// Behaviors lists every accepted behavior label.
var Behaviors = []Behavior{
	BehaviorForaging,
	BehaviorResting,
	BehaviorLocomotion,
	BehaviorSocial,
	BehaviorPlay,
	BehaviorStereotypy,
}

// Valid reports whether b is one of the accepted behavior labels.
func (b Behavior) Valid() bool {
	for _, known := range Behaviors {
		if b == known {
			return true
		}
	}
	return false
}

// String returns the behavior label as a plain string.
func (b Behavior) String() string {
	return string(b)
}

// BehaviorEvent is one observed behavior fact. Rows are append-only: created
// by ingestion, never mutated, never deleted outside of test-data resets.
type BehaviorEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AnimalID   string    `gorm:"type:varchar(64);not null;index:idx_behavior_events_animal_ts,priority:1" json:"animal_id"`
	TS         time.Time `gorm:"not null;index:idx_behavior_events_animal_ts,priority:2" json:"ts"`
	Behavior   Behavior  `gorm:"type:varchar(32);not null" json:"behavior"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides the table name for BehaviorEvent
func (BehaviorEvent) TableName() string {
	return "behavior_events"
}
